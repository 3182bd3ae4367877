package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/klokku/agenda/pkg/schedule"
	log "github.com/sirupsen/logrus"
)

const defaultExportPath = "agenda.ics"

// Shell is the line-oriented front end. Every command maps to exactly one store or query operation.
type Shell struct {
	store *schedule.Store
	query *schedule.Query
	in    *bufio.Scanner
	out   io.Writer
}

type command struct {
	name    string
	aliases []string
	help    string
	run     func(ctx context.Context, args []string) error
}

var errQuit = errors.New("quit")

func New(store *schedule.Store, query *schedule.Query, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		store: store,
		query: query,
		in:    bufio.NewScanner(in),
		out:   out,
	}
}

// Run reads commands until quit or end of input.
func (s *Shell) Run(ctx context.Context) error {
	commands := s.commands()
	lookup := make(map[string]command)
	for _, c := range commands {
		lookup[c.name] = c
		for _, alias := range c.aliases {
			lookup[alias] = c
		}
	}

	s.printf("Welcome to agenda. Type 'help' to see the available commands.\n")
	for {
		line, ok := s.ask("\n> ")
		if !ok {
			return s.in.Err()
		}
		fields := strings.Fields(strings.ToLower(line))
		if len(fields) == 0 {
			continue
		}
		// arguments keep their original case
		args := strings.Fields(line)[1:]

		c, found := lookup[fields[0]]
		if !found {
			s.printf("Unknown command %q. Type 'help' to see the available commands.\n", fields[0])
			continue
		}
		if err := c.run(ctx, args); err != nil {
			if errors.Is(err, errQuit) {
				s.printf("Goodbye!\n")
				return nil
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			s.printf("Error: %s\n", describe(err))
			log.Debugf("command %s failed: %v", c.name, err)
		}
	}
}

func (s *Shell) commands() []command {
	return []command{
		{name: "add", help: "add a new event", run: s.add},
		{name: "list-all", aliases: []string{"list", "show"}, help: "list all events", run: s.listAll},
		{name: "list-week", aliases: []string{"week"}, help: "list events of the coming week", run: s.listWeek},
		{name: "list-today", aliases: []string{"today"}, help: "list today's events", run: s.listToday},
		{name: "filter", help: "list events by category or date range", run: s.filter},
		{name: "remove", aliases: []string{"delete"}, help: "remove an event by its number in the list", run: s.remove},
		{name: "edit", help: "edit an event by its number in the list", run: s.edit},
		{name: "export", help: "export all events to an iCalendar file", run: s.export},
		{name: "help", help: "show this help", run: s.help},
		{name: "quit", aliases: []string{"exit"}, help: "leave agenda", run: func(context.Context, []string) error { return errQuit }},
	}
}

func (s *Shell) add(ctx context.Context, _ []string) error {
	var candidate schedule.Event
	var err error
	fields := []struct {
		prompt string
		target *string
	}{
		{"Name: ", &candidate.Name},
		{"Date (YYYY-MM-DD): ", &candidate.Date},
		{"Start time (HH:MM): ", &candidate.Time},
	}
	for _, f := range fields {
		if *f.target, err = s.mustAsk(f.prompt); err != nil {
			return err
		}
	}
	if candidate.DurationMinutes, err = s.askDuration(fmt.Sprintf("Duration in minutes [%d]: ", schedule.DefaultDurationMinutes), 0); err != nil {
		return err
	}
	if candidate.Category, err = s.mustAsk("Category (lecture, meeting, exam...): "); err != nil {
		return err
	}

	added, err := s.store.Add(ctx, candidate, false)
	var conflict *schedule.ConflictError
	if errors.As(err, &conflict) {
		override, askErr := s.confirmOverride(conflict)
		if askErr != nil || !override {
			return askErr
		}
		added, err = s.store.Add(ctx, candidate, true)
	}
	if err != nil {
		return err
	}
	s.printf("Added: %s\n", format(added))
	return nil
}

func (s *Shell) listAll(context.Context, []string) error {
	s.show(s.query.SortedAll(), "All events")
	return nil
}

func (s *Shell) listWeek(context.Context, []string) error {
	s.show(s.query.Week(), "Events of the coming week")
	return nil
}

func (s *Shell) listToday(context.Context, []string) error {
	s.show(s.query.Today(), "Today's events")
	return nil
}

func (s *Shell) filter(_ context.Context, args []string) error {
	mode := ""
	if len(args) > 0 {
		mode = args[0]
		args = args[1:]
	}
	if mode == "" {
		var err error
		if mode, err = s.mustAsk("Filter by (category/dates): "); err != nil {
			return err
		}
	}

	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "category", "c":
		label := strings.Join(args, " ")
		if label == "" {
			var err error
			if label, err = s.mustAsk("Category: "); err != nil {
				return err
			}
		}
		s.show(s.query.ByCategory(label), fmt.Sprintf("Events in category %q", label))
		return nil
	case "dates", "date", "d":
		from, to, err := s.askRange(args)
		if err != nil {
			return err
		}
		events, err := s.query.ByDateRange(from, to)
		if err != nil {
			return err
		}
		s.show(events, fmt.Sprintf("Events from %s to %s", from, to))
		return nil
	default:
		return fmt.Errorf("unknown filter %q, use 'category' or 'dates'", mode)
	}
}

func (s *Shell) remove(ctx context.Context, args []string) error {
	position, err := s.selectPosition(args, "Number of the event to remove: ")
	if err != nil {
		return err
	}
	removed, err := s.store.Remove(ctx, position)
	if err != nil {
		return err
	}
	s.printf("Removed: %s\n", format(removed))
	return nil
}

func (s *Shell) edit(ctx context.Context, args []string) error {
	position, err := s.selectPosition(args, "Number of the event to edit: ")
	if err != nil {
		return err
	}
	current, err := s.store.At(position)
	if err != nil {
		return err
	}

	s.printf("Press enter to keep the current value.\n")
	var update schedule.EventUpdate
	fields := []struct {
		label   string
		current string
		target  **string
	}{
		{"Name", current.Name, &update.Name},
		{"Date", current.Date, &update.Date},
		{"Start time", current.Time, &update.Time},
		{"Category", current.Category, &update.Category},
	}
	for _, f := range fields {
		answer, err := s.mustAsk(fmt.Sprintf("%s [%s]: ", f.label, f.current))
		if err != nil {
			return err
		}
		if answer != "" {
			value := answer
			*f.target = &value
		}
	}
	duration, err := s.askDuration(fmt.Sprintf("Duration in minutes [%d]: ", int(current.Duration()/time.Minute)), -1)
	if err != nil {
		return err
	}
	if duration >= 0 {
		update.DurationMinutes = &duration
	}

	edited, err := s.store.Edit(ctx, position, update, false)
	var conflict *schedule.ConflictError
	if errors.As(err, &conflict) {
		override, askErr := s.confirmOverride(conflict)
		if askErr != nil || !override {
			return askErr
		}
		edited, err = s.store.Edit(ctx, position, update, true)
	}
	if err != nil {
		return err
	}
	s.printf("Updated: %s\n", format(edited))
	return nil
}

func (s *Shell) export(_ context.Context, args []string) error {
	path := strings.Join(args, " ")
	if path == "" {
		answer, err := s.mustAsk(fmt.Sprintf("File [%s]: ", defaultExportPath))
		if err != nil {
			return err
		}
		path = answer
	}
	if path == "" {
		path = defaultExportPath
	}
	events := s.store.All()
	if err := schedule.WriteICSFile(path, events, time.Now()); err != nil {
		return err
	}
	s.printf("Exported %d events to %s\n", len(events), path)
	return nil
}

func (s *Shell) help(context.Context, []string) error {
	s.printf("Available commands:\n")
	for _, c := range s.commands() {
		name := c.name
		if len(c.aliases) > 0 {
			name += " (" + strings.Join(c.aliases, ", ") + ")"
		}
		s.printf("  %-28s %s\n", name, c.help)
	}
	return nil
}

// selectPosition takes the position from args, or shows the sorted list and asks for it.
func (s *Shell) selectPosition(args []string, prompt string) (int, error) {
	answer := ""
	if len(args) > 0 {
		answer = args[0]
	} else {
		events := s.query.SortedAll()
		s.show(events, "All events")
		if len(events) == 0 {
			return 0, fmt.Errorf("%w: there are no events", schedule.ErrIndexOutOfRange)
		}
		var err error
		if answer, err = s.mustAsk(prompt); err != nil {
			return 0, err
		}
	}
	position, err := strconv.Atoi(answer)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", answer)
	}
	return position, nil
}

func (s *Shell) askRange(args []string) (string, string, error) {
	if len(args) >= 2 {
		return args[0], args[1], nil
	}
	from, err := s.mustAsk("From (YYYY-MM-DD): ")
	if err != nil {
		return "", "", err
	}
	to, err := s.mustAsk("To (YYYY-MM-DD): ")
	if err != nil {
		return "", "", err
	}
	return from, to, nil
}

// askDuration returns fallback when the answer is empty.
func (s *Shell) askDuration(prompt string, fallback int) (int, error) {
	answer, err := s.mustAsk(prompt)
	if err != nil {
		return 0, err
	}
	if answer == "" {
		return fallback, nil
	}
	minutes, err := strconv.Atoi(answer)
	if err != nil || minutes <= 0 {
		return 0, fmt.Errorf("%w: duration %q must be a positive number of minutes", schedule.ErrInvalidFormat, answer)
	}
	return minutes, nil
}

func (s *Shell) confirmOverride(conflict *schedule.ConflictError) (bool, error) {
	s.printf("Warning: this overlaps with %q.\n", conflict.Name)
	answer, err := s.mustAsk("Add anyway? (yes/no): ")
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "yes", "y":
		return true, nil
	default:
		s.printf("Nothing was changed.\n")
		return false, nil
	}
}

func (s *Shell) show(events []schedule.Event, title string) {
	if len(events) == 0 {
		s.printf("No events.\n")
		return
	}
	s.printf("--- %s ---\n", title)
	for i, e := range events {
		s.printf("%d. %s\n", i+1, format(e))
	}
}

func (s *Shell) ask(prompt string) (string, bool) {
	s.printf("%s", prompt)
	if !s.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(s.in.Text()), true
}

// mustAsk turns end of input into io.EOF so a command can stop mid-dialogue.
func (s *Shell) mustAsk(prompt string) (string, error) {
	answer, ok := s.ask(prompt)
	if !ok {
		return "", io.EOF
	}
	return answer, nil
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func format(e schedule.Event) string {
	line := fmt.Sprintf("[%s %s] %s (%s)", e.Date, e.Time, e.Name, e.Category)
	if e.DurationMinutes > 0 && e.DurationMinutes != schedule.DefaultDurationMinutes {
		line += fmt.Sprintf(" %d min", e.DurationMinutes)
	}
	return line
}

func describe(err error) string {
	var conflict *schedule.ConflictError
	var persistence *schedule.PersistenceError
	switch {
	case errors.As(err, &conflict):
		return fmt.Sprintf("this overlaps with %q", conflict.Name)
	case errors.As(err, &persistence):
		return fmt.Sprintf("could not save the schedule, nothing was changed (%v)", persistence.Err)
	default:
		return err.Error()
	}
}
