package cli

import (
	"context"
	"fmt"
	"strings"
)

func (a *App) getStatus() string {
	s := ""
	if sc := a.sess.Current(); sc.Authenticated {
		s = sc.OwnerID[:8] + " "
	}
	s += string(a.modes.Mode())
	return fmt.Sprintf("(%s)", s)
}

// repl runs the interactive loop. Commands only ever reach the data layer
// through the gateway dispatch.
func (a *App) repl(ctx context.Context) {
	fmt.Println("recall shell (type 'help' for commands)")

	for {
		fmt.Printf("recall %s> ", a.getStatus())
		line, err := a.reader.ReadString('\n')
		if err != nil {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.sess.Current().Authenticated {
				fmt.Println("Available commands: start, note, list, show, delete, status, logout, exit")
			} else {
				fmt.Println("Available commands: login, start, note, list, show, delete, status, exit")
			}
		case "login":
			a.Login(ctx)
		case "logout":
			a.Logout(ctx)
		case "start":
			a.StartSession(ctx)
		case "note":
			a.AddNote(ctx)
		case "list":
			a.List(ctx, args)
		case "show":
			a.Show(ctx)
		case "delete":
			a.Delete(ctx)
		case "status":
			fmt.Printf("mode: %s online: %v\n", a.modes.Mode(), a.sess.Current().Online)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Printf("unknown command: %s\n", cmd)
		}

		if ctx.Err() != nil {
			return
		}
	}
}
