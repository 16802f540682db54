package service

import "math"

const xpPerLevelUnit = 100

// LevelForXP is the single source of truth for level: floor(sqrt(totalXP/100)) + 1.
// floor(sqrt(x/100)) equals floor(sqrt(floor(x/100))) for x >= 0, so integer
// arithmetic is exact; the correction loops absorb float rounding near squares.
func LevelForXP(totalXP int) int {
	if totalXP <= 0 {
		return 1
	}
	units := totalXP / xpPerLevelUnit
	root := int(math.Sqrt(float64(units)))
	for root*root > units {
		root--
	}
	for (root+1)*(root+1) <= units {
		root++
	}
	return root + 1
}

// XPToNextLevel is derived from the post-update total and level, never from a prior level.
func XPToNextLevel(totalXP int) int {
	level := LevelForXP(totalXP)
	return level*level*xpPerLevelUnit - totalXP
}
