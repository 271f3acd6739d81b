package model

import (
	"errors"
	"strings"
)

// Grade is an enlisted grade code.  The same codes identify the promotion
// cycle a roster is evaluated for and the grade held by a member.
type Grade string

const (
	GradeAB  Grade = "AB"
	GradeAMN Grade = "AMN"
	GradeA1C Grade = "A1C"
	GradeSRA Grade = "SRA"
	GradeSSG Grade = "SSG"
	GradeTSG Grade = "TSG"
	GradeMSG Grade = "MSG"
	GradeSMS Grade = "SMS"
	GradeCMS Grade = "CMS"
)

// ErrUnknownCycle is returned when a cycle code is outside the promotion
// cycle enumeration.
var ErrUnknownCycle = errors.New("unknown promotion cycle")

// ErrUnknownGrade is returned when a member grade is not recognised.
var ErrUnknownGrade = errors.New("unknown grade")

// Cycles lists the promotion cycles a roster can be uploaded for, in
// display order.
var Cycles = []Grade{GradeA1C, GradeSRA, GradeSSG, GradeTSG, GradeMSG, GradeSMS, GradeCMS}

// Grades lists every grade a member record may carry.
var Grades = []Grade{GradeAB, GradeAMN, GradeA1C, GradeSRA, GradeSSG, GradeTSG, GradeMSG, GradeSMS, GradeCMS}

var cycleLabels = map[Grade]string{
	GradeA1C: "Airman First Class",
	GradeSRA: "Senior Airman",
	GradeSSG: "Staff Sergeant",
	GradeTSG: "Technical Sergeant",
	GradeMSG: "Master Sergeant",
	GradeSMS: "Senior Master Sergeant",
	GradeCMS: "Chief Master Sergeant",
}

// ParseCycle normalises s and checks it against the cycle enumeration.
func ParseCycle(s string) (Grade, error) {
	g := Grade(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := cycleLabels[g]; !ok {
		return "", ErrUnknownCycle
	}
	return g, nil
}

// ParseGrade normalises s and checks it against the member grade list.
func ParseGrade(s string) (Grade, error) {
	g := Grade(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range Grades {
		if g == known {
			return g, nil
		}
	}
	return "", ErrUnknownGrade
}

// Label returns the long form of a cycle code, or the code itself when it
// has none.
func (g Grade) Label() string {
	if l, ok := cycleLabels[g]; ok {
		return string(g) + " - " + l
	}
	return string(g)
}
