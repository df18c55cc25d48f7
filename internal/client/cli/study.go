package cli

import (
	"context"
	"fmt"
	"log"
	"os"
)

// Programs lists the caller's programs.
func (a *App) Programs(ctx context.Context) error {
	programs, err := a.study.ListPrograms(ctx)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}
	if len(programs) == 0 {
		fmt.Println("No programs yet; use 'addprogram'.")
		return nil
	}
	for _, p := range programs {
		fmt.Printf("%s  %s\n", p.ID, p.Name)
	}
	return nil
}

func (a *App) AddProgram(ctx context.Context) error {
	name, err := getSimpleText(a.reader, "Enter program name", os.Stdout)
	if err != nil {
		return err
	}
	p, err := a.study.CreateProgram(ctx, name)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}
	fmt.Printf("Created program %s (%s)\n", p.Name, p.ID)
	return nil
}

func (a *App) DeleteProgram(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter program id to delete", os.Stdout)
	if err != nil {
		return err
	}
	if err := a.study.DeleteProgram(ctx, id); err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}
	if a.program != nil && a.program.ID == id {
		a.program, a.course = nil, nil
	}
	return nil
}

// UseProgram selects the program the course commands operate on.
func (a *App) UseProgram(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter program id", os.Stdout)
	if err != nil {
		return err
	}
	programs, err := a.study.ListPrograms(ctx)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}
	for _, p := range programs {
		if p.ID == id {
			a.program, a.course = p, nil
			fmt.Printf("Using program %s\n", p.Name)
			return nil
		}
	}
	fmt.Println("No such program:", id)
	return nil
}

func (a *App) Courses(ctx context.Context) error {
	if a.program == nil {
		fmt.Println("Select a program first ('use').")
		return nil
	}
	courses, err := a.study.ListCourses(ctx, a.program.ID)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}
	if len(courses) == 0 {
		fmt.Println("No courses yet; use 'addcourse'.")
		return nil
	}
	for _, c := range courses {
		fmt.Printf("%s  %s\n", c.ID, c.Name)
	}
	return nil
}

func (a *App) AddCourse(ctx context.Context) error {
	if a.program == nil {
		fmt.Println("Select a program first ('use').")
		return nil
	}
	name, err := getSimpleText(a.reader, "Enter course name", os.Stdout)
	if err != nil {
		return err
	}
	c, err := a.study.CreateCourse(ctx, a.program.ID, name)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}
	fmt.Printf("Created course %s (%s)\n", c.Name, c.ID)
	return nil
}

func (a *App) DeleteCourse(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter course id to delete", os.Stdout)
	if err != nil {
		return err
	}
	if err := a.study.DeleteCourse(ctx, id); err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}
	if a.course != nil && a.course.ID == id {
		a.course = nil
	}
	return nil
}

// UseCourse selects the course the session commands operate on.
func (a *App) UseCourse(ctx context.Context) error {
	if a.program == nil {
		fmt.Println("Select a program first ('use').")
		return nil
	}
	id, err := getSimpleText(a.reader, "Enter course id", os.Stdout)
	if err != nil {
		return err
	}
	courses, err := a.study.ListCourses(ctx, a.program.ID)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}
	for _, c := range courses {
		if c.ID == id {
			a.course = c
			fmt.Printf("Using course %s\n", c.Name)
			return nil
		}
	}
	fmt.Println("No such course:", id)
	return nil
}

func (a *App) Sessions(ctx context.Context) error {
	if a.course == nil {
		fmt.Println("Select a course first ('usecourse').")
		return nil
	}
	sessions, err := a.study.ListSessions(ctx, a.course.ID)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}
	if len(sessions) == 0 {
		fmt.Println("No sessions yet; use 'addsession'.")
		return nil
	}
	for _, s := range sessions {
		fmt.Printf("%s  %s\n", s.ID, s.Name)
	}
	return nil
}

func (a *App) AddSession(ctx context.Context) error {
	if a.course == nil {
		fmt.Println("Select a course first ('usecourse').")
		return nil
	}
	name, err := getSimpleText(a.reader, "Enter session name", os.Stdout)
	if err != nil {
		return err
	}
	s, err := a.study.CreateSession(ctx, a.course.ID, name)
	if err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}
	fmt.Printf("Created session %s (%s)\n", s.Name, s.ID)
	return nil
}

func (a *App) DeleteSession(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter session id to delete", os.Stdout)
	if err != nil {
		return err
	}
	if err := a.study.DeleteSession(ctx, id); err != nil {
		log.Printf("Error: %s", err.Error())
		return err
	}
	return nil
}
