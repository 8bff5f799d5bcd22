package domain

// levelThresholds[i] is the minimum balance for level i+1.
var levelThresholds = []int64{
	0,
	100,
	500,
	2_000,
	10_000,
	50_000,
	250_000,
	1_000_000,
	5_000_000,
	25_000_000,
}

var rankNames = []string{
	"Digger",
	"Prospector",
	"Miner",
	"Foreman",
	"Engineer",
	"Surveyor",
	"Magnate",
	"Tycoon",
	"Baron",
	"Legend",
}

// MaxLevel is the highest derivable level.
var MaxLevel = len(levelThresholds)

// LevelFor maps a balance to its display level (1-based).
func LevelFor(balance int64) int {
	level := 1
	for i, min := range levelThresholds {
		if balance >= min {
			level = i + 1
		}
	}
	return level
}

// RankFor returns the display rank name of a level.
func RankFor(level int) string {
	if level < 1 {
		level = 1
	}
	if level > len(rankNames) {
		level = len(rankNames)
	}
	return rankNames[level-1]
}

// NextLevelAt returns the balance needed for the next level, or -1 at max level.
func NextLevelAt(balance int64) int64 {
	level := LevelFor(balance)
	if level >= MaxLevel {
		return -1
	}
	return levelThresholds[level]
}
