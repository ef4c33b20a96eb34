package ass

import (
	"log/slog"
	"math"
)

// Transform is the 2D approximation of a Flash 3D rotation that ASS can
// express: a position, three rotation angles in degrees and a uniform
// scale in percent.
type Transform struct {
	X, Y             float64
	RotX, RotY, RotZ float64
	ScaleX, ScaleY   float64
}

// wrapAngle maps deg into (-180, 180].
func wrapAngle(deg float64) float64 {
	m := math.Mod(180-deg, 360)
	if m < 0 {
		m += 360
	}
	return 180 - m
}

// FlashRotation projects a rotation of rotY then rotZ degrees applied at
// (x, y) onto a width×height viewport, using the Flash player's fixed
// field of view. Geometry that lands behind the camera is logged and
// flipped to the closest renderable orientation. If log is nil,
// slog.Default() is used.
func FlashRotation(log *slog.Logger, rotY, rotZ, x, y, width, height float64) Transform {
	if log == nil {
		log = slog.Default()
	}

	rotY = wrapAngle(rotY)
	rotZ = wrapAngle(rotZ)
	if rotY == 90 || rotY == -90 {
		rotY -= 1
	}

	var outX, outY, outZ float64
	if rotY == 0 || rotZ == 0 {
		// Single-axis rotation needs no perspective correction of the angles.
		outY = -rotY // positive is clockwise in Flash
		outZ = -rotZ
		rotY *= math.Pi / 180
		rotZ *= math.Pi / 180
	} else {
		rotY *= math.Pi / 180
		rotZ *= math.Pi / 180
		outY = math.Atan2(-math.Sin(rotY)*math.Cos(rotZ), math.Cos(rotY)) * 180 / math.Pi
		outZ = math.Atan2(-math.Cos(rotY)*math.Sin(rotZ), math.Cos(rotZ)) * 180 / math.Pi
		outX = math.Asin(math.Sin(rotY)*math.Sin(rotZ)) * 180 / math.Pi
	}

	sinY, cosY := math.Sin(rotY), math.Cos(rotY)
	sinZ, cosZ := math.Sin(rotZ), math.Cos(rotZ)
	trX := (x*cosZ+y*sinZ)/cosY + (1-cosZ/cosY)*width/2 - sinZ/cosY*height/2
	trY := y*cosZ - x*sinZ + sinZ*width/2 + (1-cosZ)*height/2
	trZ := (trX - width/2) * sinY

	fov := width * math.Tan(2*math.Pi/9) / 2
	scale := 1.0
	if fov+trZ == 0 {
		log.Error("rotation makes object behind the camera", "trZ", trZ)
	} else {
		scale = fov / (fov + trZ)
	}
	trX = (trX-width/2)*scale + width/2
	trY = (trY-height/2)*scale + height/2
	if scale < 0 {
		scale = -scale
		outX += 180
		outY += 180
		log.Error("rotation makes object behind the camera", "trZ", trZ, "fov", fov)
	}

	return Transform{
		X:      trX,
		Y:      trY,
		RotX:   wrapAngle(outX),
		RotY:   wrapAngle(outY),
		RotZ:   wrapAngle(outZ),
		ScaleX: scale * 100,
		ScaleY: scale * 100,
	}
}
