package costume

// OldDirFromFacing maps a facing angle (0..359) to the four classic
// directions: 0 west, 1 east, 2 south, 3 north.
func OldDirFromFacing(dir int) int {
	switch {
	case dir >= 71 && dir <= 109:
		return 1
	case dir >= 109 && dir <= 251:
		return 2
	case dir >= 251 && dir <= 289:
		return 0
	default:
		return 3
	}
}

var (
	simpleDirs8 = [8]int{22, 72, 107, 157, 202, 252, 287, 337}
	simpleDirs4 = [4]int{71, 109, 251, 289}
)

// ToSimpleDir quantizes a facing angle to 8 directions (dirType != 0) or 4.
func ToSimpleDir(dirType, dir int) int {
	if dirType != 0 {
		for i := 0; i < 7; i++ {
			if dir >= simpleDirs8[i] && dir <= simpleDirs8[i+1] {
				return i + 1
			}
		}
		return 0
	}
	for i := 0; i < 3; i++ {
		if dir >= simpleDirs4[i] && dir <= simpleDirs4[i+1] {
			return i + 1
		}
	}
	return 0
}

// FromSimpleDir is the inverse quantization: the representative angle.
func FromSimpleDir(dirType, dir int) int {
	if dirType != 0 {
		return dir * 45
	}
	return dir * 90
}

// OldDirToFacing returns the representative angle for a classic direction.
func OldDirToFacing(dir int) int {
	switch dir & 3 {
	case 0:
		return 270
	case 1:
		return 90
	case 2:
		return 180
	default:
		return 0
	}
}

// NormalizeAngle folds any angle into 0..359.
func NormalizeAngle(a int) int {
	a %= 360
	if a < 0 {
		a += 360
	}
	return a
}
