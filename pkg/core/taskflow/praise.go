package taskflow

import "fmt"

// praiseTemplates each take the volunteer's display name once
var praiseTemplates = [...]string{
	"%s, you just made Connect Club proud today!",
	"%s, your consistency makes Connect Club stronger every day.",
	"Connect Club celebrates the effort you put in, %s.",
	"Keep going, %s. Connect Club is growing with you.",
	"%s, every step you take lifts the whole Connect Club family.",
	"What a brilliant effort, %s! Connect Club shines brighter now.",
	"%s, your determination is shaping the future of Connect Club.",
	"Connect Club feels your energy, %s, and it is inspiring.",
	"Fantastic work, %s! This is how Connect Club achieves great things.",
	"You did it, %s! Connect Club moves forward because of people like you.",
	"Amazing job, %s. The Connect Club journey is brighter with you.",
	"%s, the discipline you show lifts Connect Club higher.",
	"Outstanding spirit, %s. Connect Club applauds your hard work.",
	"Cheers to you, %s! Connect Club celebrates this win.",
	"Incredible progress, %s. You are making Connect Club stronger.",
	"With this task done, %s, you have raised the bar at Connect Club.",
	"%s, your effort today builds the Connect Club of tomorrow.",
	"What a milestone, %s! Connect Club grows because of you.",
	"%s, the passion you bring is the true strength of Connect Club.",
	"Spectacular work, %s. Connect Club stands taller today.",
	"Keep shining, %s. Connect Club is proud of your spirit.",
	"%s, you have turned effort into inspiration for Connect Club.",
	"Well done, %s! Connect Club thrives on dedication like yours.",
	"The Connect Club story would not be complete without your impact, %s.",
	"Superb, %s! This victory belongs to you and Connect Club.",
	"%s, you have just set another example for Connect Club.",
	"Brilliant achievement, %s. Connect Club celebrates your success.",
	"Hats off, %s! Your perseverance powers Connect Club forward.",
	"%s, this is not just a task done, it is Connect Club history in the making.",
	"Legendary effort, %s. You have written another proud page in the Connect Club journey.",
}

// PraiseCount is the number of available praise messages
const PraiseCount = len(praiseTemplates)

// Praise picks a congratulation message for name. intn must return a value in [0, n).
func Praise(name string, intn func(n int) int) string {
	if name == "" {
		name = "Volunteer"
	}
	i := intn(PraiseCount)
	if i < 0 || i >= PraiseCount {
		i = 0
	}
	return fmt.Sprintf(praiseTemplates[i], name)
}
