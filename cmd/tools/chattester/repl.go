package main

import (
	"bufio"
	"context"
	"io"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	chatService "github.com/zhouzirui/strombreaker/widget/internal/service/chat"
)

// session is the controller surface the REPL drives.
type session interface {
	SendMessage(ctx context.Context, text string)
	SendQuickReply(ctx context.Context, activity string)
	SelectMood(score int) error
	SaveMood(ctx context.Context, notes string) error
	StartActivity(ctx context.Context, kind string) error
	ToggleMeditation()
	StopMeditation(ctx context.Context)
	LoadDashboard(ctx context.Context) error
}

var _ session = (*chatService.Controller)(nil)

var errQuit = errors.New("quit")

const helpText = `commands:
  <text>              send a chat message
  /reply <activity>   send "I want to try: <activity>"
  /mood <1-5>         select a mood
  /save [notes]       save the selected mood
  /activity <kind>    meditation, breathing, journaling or gratitude
  /toggle             pause or resume the meditation timer
  /stop               close the meditation session
  /dashboard          refresh the dashboard
  /quit               exit`

// execute runs one input line against the session.
func execute(ctx context.Context, s session, line string) (string, error) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "/") {
		s.SendMessage(ctx, line)
		return "", nil
	}

	name, arg, _ := strings.Cut(strings.TrimPrefix(line, "/"), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(name) {
	case "help", "?":
		return helpText, nil
	case "quit", "exit", "q":
		return "", errQuit
	case "reply":
		s.SendQuickReply(ctx, arg)
	case "mood":
		score, err := strconv.Atoi(arg)
		if err != nil {
			return "", errors.Errorf("mood must be a number from 1 to 5, got %q", arg)
		}
		return "", s.SelectMood(score)
	case "save":
		return "", s.SaveMood(ctx, arg)
	case "activity":
		return "", s.StartActivity(ctx, arg)
	case "toggle":
		s.ToggleMeditation()
	case "stop":
		s.StopMeditation(ctx)
	case "dashboard":
		return "", s.LoadDashboard(ctx)
	default:
		return "", errors.Errorf("unknown command /%s, try /help", name)
	}
	return "", nil
}

func runREPL(ctx context.Context, s session, in io.Reader, p *printer) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	var inflight sync.WaitGroup
	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				inflight.Wait()
				return nil
			}
			// chat turns block; run them so scripted cues and the timer keep printing
			inflight.Add(1)
			go func() {
				defer inflight.Done()
				out, err := execute(ctx, s, line)
				switch {
				case errors.Is(err, errQuit):
					p.notice("bye")
					p.quit()
				case err != nil:
					p.failure(err)
				case out != "":
					p.notice(out)
				}
			}()
		case <-p.done:
			return nil
		}
	}
}
