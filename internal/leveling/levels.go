package leveling

import (
	"fmt"
	"math"

	"github.com/wrenfield/rankman/internal/database"
)

// Resolution is the outcome of mapping a point total onto a guild's level
// ladder. Level never falls below the stored level it was resolved from.
type Resolution struct {
	Level         int
	Name          string
	NextThreshold int
	NextLevelName string
}

// DefaultThreshold returns the points required to reach level n on the
// built-in curve, used when a guild has no custom definitions.
func DefaultThreshold(n int) int {
	t := int(math.Round(25 * math.Pow(float64(n), 1.5)))
	if t < 1 {
		return 1
	}
	return t
}

// FallbackName is the display name for a numeric level with no custom
// definition backing it.
func FallbackName(level int) string {
	if level == 0 {
		return "Unranked"
	}
	return fmt.Sprintf("Level %d", level)
}

// Resolve maps activePoints onto a level. currentLevel is the stored level
// and acts as a floor: shrinking point totals never resolve downward through
// this function. defs must be sorted ascending by PointsRequired; an empty
// set selects the default curve.
func Resolve(activePoints, currentLevel int, defs []database.LevelDefinition) Resolution {
	if len(defs) == 0 {
		return resolveDefault(activePoints, currentLevel)
	}
	return resolveCustom(activePoints, currentLevel, defs)
}

func resolveDefault(activePoints, currentLevel int) Resolution {
	level := currentLevel
	for activePoints >= DefaultThreshold(level+1) {
		level++
	}
	return Resolution{
		Level:         level,
		Name:          FallbackName(level),
		NextThreshold: DefaultThreshold(level + 1),
		NextLevelName: FallbackName(level + 1),
	}
}

func resolveCustom(activePoints, currentLevel int, defs []database.LevelDefinition) Resolution {
	level := currentLevel
	name := FallbackName(currentLevel)
	for _, d := range defs {
		if d.PointsRequired <= activePoints && d.LevelRank > level {
			level = d.LevelRank
			name = d.LevelName
		}
	}

	res := Resolution{Level: level, Name: name}
	for _, d := range defs {
		if d.LevelRank > level {
			res.NextThreshold = d.PointsRequired
			res.NextLevelName = d.LevelName
			return res
		}
	}
	// A fresh member with no reachable rank still gets pointed at the
	// lowest rung of the ladder.
	if level == 0 {
		res.NextThreshold = defs[0].PointsRequired
		res.NextLevelName = defs[0].LevelName
	}
	return res
}
