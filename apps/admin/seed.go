package main

import (
	"context"
	"fmt"
	"time"

	"github.com/homeworkhelper/api/core/question"
	"github.com/homeworkhelper/api/core/user"
)

type seedQuestion struct {
	text     string
	subject  question.Subject
	topic    string
	askCount int
	upvotes  int
	accuracy int
	answer   string
}

var seedQuestions = []seedQuestion{
	{"How do I solve quadratic equations?", question.Math, "Algebra", 150, 45, 85,
		"To solve quadratic equations, use the quadratic formula: x = (-b ± √(b²-4ac)) / 2a"},
	{"What is the powerhouse of the cell?", question.Science, "Biology", 200, 60, 92,
		"The powerhouse of the cell is the mitochondrion, which produces ATP energy."},
	{"Explain the main causes of WWI", question.History, "World War I", 180, 55, 88,
		"The main causes of WWI were militarism, alliances, imperialism, and nationalism (MAIN)."},
	{"What is a verb?", question.English, "Grammar", 120, 35, 95,
		"A verb is a word that describes an action, occurrence, or state of being."},
	{"What are Calculus Derivatives?", question.Math, "Calculus Derivatives", 250, 75, 78,
		"A derivative represents the rate of change of a function with respect to its variable."},
	{"Define Organic Chemistry", question.Science, "Organic Chemistry", 170, 50, 82,
		"Organic chemistry is the study of carbon-containing compounds and their reactions."},
	{"How do I find the area of a circle?", question.Math, "Geometry", 140, 40, 90,
		"The area of a circle is calculated using the formula: A = πr², where r is the radius."},
	{"What is photosynthesis?", question.Science, "Biology", 190, 58, 87,
		"Photosynthesis is the process by which plants convert light energy into chemical energy."},
	{"Explain the structure of an essay", question.English, "Writing", 130, 38, 91,
		"An essay typically has an introduction, body paragraphs, and a conclusion."},
	{"What caused the American Civil War?", question.History, "American History", 160, 48, 86,
		"The American Civil War was primarily caused by disputes over slavery and states rights."},
	{"How do I integrate by parts?", question.Math, "Calculus Derivatives", 220, 68, 75,
		"Integration by parts uses the formula: ∫u dv = uv - ∫v du"},
	{"What is the periodic table?", question.Science, "Chemistry", 145, 42, 93,
		"The periodic table organizes chemical elements by atomic number and properties."},
}

// hours since each seed student was last active
var seedActivity = []int{2, 5, 12, 18, 20, 3, 1, 23}

func seedUsers(now time.Time) []user.User {
	users := make([]user.User, 0, len(seedActivity))
	for i, h := range seedActivity {
		users = append(users, user.User{
			Email:      fmt.Sprintf("student%d@example.com", i+1),
			Role:       user.RoleStudent,
			LastActive: now.Add(-time.Duration(h) * time.Hour),
		})
	}
	return users
}

func (cli *commandLine) seed(purge bool) error {
	ctx := context.Background()

	if purge {
		if !cli.confirm("Delete every question without an asker?") {
			return errAborted
		}
		n, err := cli.questionSvc.PurgeSeeds(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(cli.out, "removed %d seed questions\n", n)
	}

	users := seedUsers(time.Now().UTC())
	if err := cli.userSvc.Seed(ctx, users); err != nil {
		return err
	}

	questions := make([]question.Question, 0, len(seedQuestions))
	for _, sq := range seedQuestions {
		accuracy := sq.accuracy
		questions = append(questions, question.Question{
			Text:           sq.text,
			Subject:        sq.subject,
			Topic:          sq.topic,
			Answer:         sq.answer,
			AskCount:       sq.askCount,
			Upvotes:        sq.upvotes,
			AccuracyRating: &accuracy,
		})
	}
	created, err := cli.questionSvc.Seed(ctx, questions)
	if err != nil {
		return err
	}
	fmt.Fprintf(cli.out, "created %d students and %d seed questions\n", len(users), created)
	return nil
}
