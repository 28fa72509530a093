package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/recallhq/recall/internal/gateway"
	"github.com/recallhq/recall/internal/models"
)

// StartSession records the beginning of a capture session.
func (a *App) StartSession(ctx context.Context) {
	app, err := GetSimpleText(a.reader, "Application being captured", os.Stdout)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	display, err := GetSimpleText(a.reader, "Display", os.Stdout)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	env, err := models.Wrap(app, models.CaptureSession{
		StartedAt: time.Now().UTC(),
		App:       app,
		Display:   display,
	})
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	res, err := a.dispatch(ctx, gateway.Operation{Verb: gateway.VerbCreate, Envelope: env})
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	fmt.Printf("Session started: %s\n", res.Record.ID)
}

// AddNote stores a free-form summary, optionally attached to a session.
func (a *App) AddNote(ctx context.Context) {
	title, err := GetSimpleText(a.reader, "Title", os.Stdout)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	sessionID, err := GetSimpleText(a.reader, "Session id (optional)", os.Stdout)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	text, err := GetMultiline(a.reader, "Note", os.Stdout)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	env, err := models.Wrap(title, models.Summary{SessionID: sessionID, Text: text})
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	res, err := a.dispatch(ctx, gateway.Operation{Verb: gateway.VerbCreate, Envelope: env})
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	fmt.Printf("Saved: %s\n", res.Record.ID)
}

// List prints stored records, optionally filtered by kind ("list summary").
func (a *App) List(ctx context.Context, args []string) {
	var filter models.Filter
	if len(args) > 0 {
		filter.Kind = models.Kind(args[0])
	}

	res, err := a.dispatch(ctx, gateway.Operation{Verb: gateway.VerbList, Filter: filter})
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	if len(res.Records) == 0 {
		fmt.Println("No records.")
		return
	}
	for _, rec := range res.Records {
		fmt.Printf("%s  %-8s  %s  %s\n",
			rec.ID, rec.Payload.Kind, rec.UpdatedAt.Local().Format(time.DateTime), rec.Payload.Title)
	}
}

// Show prints one record with its decoded payload.
func (a *App) Show(ctx context.Context) {
	id, err := GetSimpleText(a.reader, "Record id", os.Stdout)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	res, err := a.dispatch(ctx, gateway.Operation{Verb: gateway.VerbGet, ID: id})
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}

	rec := res.Record
	fmt.Printf("Id: %s\nKind: %s\nTitle: %s\nUpdated: %s\n",
		rec.ID, rec.Payload.Kind, rec.Payload.Title, rec.UpdatedAt.Local().Format(time.DateTime))

	v, err := rec.Payload.Unwrap()
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	switch p := v.(type) {
	case models.CaptureSession:
		fmt.Printf("App: %s\nDisplay: %s\nStarted: %s\n", p.App, p.Display, p.StartedAt.Local().Format(time.DateTime))
	case models.TranscriptSegment:
		fmt.Printf("Session: %s\nSpeaker: %s\nText: %s\n", p.SessionID, p.Speaker, p.Text)
	case models.Summary:
		fmt.Printf("Session: %s\n%s\n", p.SessionID, p.Text)
	case models.Artifact:
		fmt.Printf("Session: %s\nMedia type: %s\nStored at: %s\n", p.SessionID, p.MediaType, p.StorageKey)
	default:
		fmt.Printf("%v\n", p)
	}
}

// Delete removes a record after confirmation.
func (a *App) Delete(ctx context.Context) {
	id, err := GetSimpleText(a.reader, "Record id", os.Stdout)
	if err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	confirm, err := GetSimpleText(a.reader, fmt.Sprintf("Delete %s? (y/n)", id), os.Stdout)
	if err != nil || confirm != "y" {
		fmt.Println("Cancelled.")
		return
	}

	if _, err := a.dispatch(ctx, gateway.Operation{Verb: gateway.VerbDelete, ID: id}); err != nil {
		fmt.Printf("Error: %s\n", err)
		return
	}
	fmt.Println("Deleted.")
}
