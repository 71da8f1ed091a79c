package dispatch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/nakulbh/sanka/internal/archive"
	"github.com/nakulbh/sanka/internal/githost"
	"github.com/nakulbh/sanka/internal/history"
	"github.com/nakulbh/sanka/internal/observability"
	"github.com/nakulbh/sanka/internal/protocol"
	"github.com/nakulbh/sanka/internal/session"
)

// errPrecondition marks a step whose session prerequisite is missing. The
// user gets a plain guidance notice instead of an error event.
var errPrecondition = errors.New("precondition not met")

// Generator produces a scaffolded file list for an app name.
type Generator interface {
	Generate(ctx context.Context, appName string) ([]archive.File, error)
}

// Publisher pushes a file list into a fresh repository.
type Publisher interface {
	Publish(ctx context.Context, token, name string, files []archive.File) (githost.Result, error)
}

// Deployer turns a pushed repository into a live URL.
type Deployer interface {
	Deploy(ctx context.Context, token, repoFullName, branch string) (string, error)
}

// Dispatcher classifies commands and executes the matching pipeline step
// against the connection's session state.
type Dispatcher struct {
	generator Generator
	publisher Publisher
	deployer  Deployer
	store     history.Store
	metrics   *observability.Metrics
	branch    string
}

func New(
	generator Generator,
	publisher Publisher,
	deployer Deployer,
	store history.Store,
	metrics *observability.Metrics,
	branch string,
) *Dispatcher {
	if branch == "" {
		branch = "main"
	}
	return &Dispatcher{
		generator: generator,
		publisher: publisher,
		deployer:  deployer,
		store:     store,
		metrics:   metrics,
		branch:    branch,
	}
}

// Handle runs exactly one action for one inbound message. Every failure is
// converted into a bot event; the connection is never torn down from here.
func (d *Dispatcher) Handle(ctx context.Context, sess *session.Session, req protocol.CommandRequest, emit func(protocol.BotEvent)) {
	cmd := Classify(req.Command)
	log.Printf("session %s command classified as %s", sess.ID, cmd.Action)

	if cmd.Action == ActionUnknown {
		emit(protocol.BotMessage("No valid command found."))
		d.record(ctx, sess.ID, cmd.Action, history.OutcomeRejected, "unrecognized command")
		d.count(cmd.Action, "unrecognized")
		return
	}

	if !sess.TryBegin() {
		emit(protocol.BotMessage("Another command is still running. Please wait for it to finish."))
		d.record(ctx, sess.ID, cmd.Action, history.OutcomeRejected, "action already in flight")
		d.count(cmd.Action, "busy")
		return
	}
	defer sess.End()

	var err error
	switch cmd.Action {
	case ActionGenerate:
		err = d.generate(ctx, sess, cmd.AppName, emit)
	case ActionPush:
		err = d.push(ctx, sess, req.GitHubToken, emit)
	case ActionDeploy:
		err = d.deploy(ctx, sess, req.VercelToken, emit)
	}

	if errors.Is(err, errPrecondition) {
		d.record(ctx, sess.ID, cmd.Action, history.OutcomeRejected, err.Error())
		d.count(cmd.Action, "precondition")
		return
	}
	if err != nil {
		log.Printf("session %s %s failed: %v", sess.ID, cmd.Action, err)
		emit(protocol.BotError(err))
		d.record(ctx, sess.ID, cmd.Action, history.OutcomeError, err.Error())
		d.count(cmd.Action, "error")
		return
	}
	d.record(ctx, sess.ID, cmd.Action, history.OutcomeOK, "")
	d.count(cmd.Action, "ok")
}

func (d *Dispatcher) generate(ctx context.Context, sess *session.Session, appName string, emit func(protocol.BotEvent)) error {
	emit(protocol.BotMessage(fmt.Sprintf("Generating %q app...", appName)))

	files, err := d.generator.Generate(ctx, appName)
	if err != nil {
		return err
	}
	blob, err := archive.Build(files)
	if err != nil {
		return err
	}

	sess.SetGeneratedApp(appName, blob)
	emit(protocol.BotEvent{Bot: protocol.BotPayload{
		Message: fmt.Sprintf("Generated %q app successfully.", appName),
		Zip:     base64.StdEncoding.EncodeToString(blob),
	}})
	return nil
}

func (d *Dispatcher) push(ctx context.Context, sess *session.Session, token string, emit func(protocol.BotEvent)) error {
	app, err := sess.GeneratedApp()
	if err != nil {
		emit(protocol.BotMessage("No app found to push. Please generate one first."))
		return fmt.Errorf("%w: %v", errPrecondition, err)
	}

	emit(protocol.BotMessage("Pushing project to GitHub..."))

	files, err := archive.Extract(app.Archive)
	if err != nil {
		return err
	}
	res, err := d.publisher.Publish(ctx, token, app.Name, files)
	if err != nil {
		return err
	}
	ref, err := session.ParseRepoRef(res.FullName)
	if err != nil {
		return err
	}

	sess.SetRepo(ref)
	emit(protocol.BotEvent{Bot: protocol.BotPayload{
		Message: "Files pushed successfully.",
		Link:    "https://github.com/" + res.FullName,
	}})
	return nil
}

func (d *Dispatcher) deploy(ctx context.Context, sess *session.Session, token string, emit func(protocol.BotEvent)) error {
	repo, err := sess.Repo()
	if err != nil {
		emit(protocol.BotMessage("No GitHub repo found. Please push your app before deploying."))
		return fmt.Errorf("%w: %v", errPrecondition, err)
	}

	emit(protocol.BotMessage("Deploying project..."))

	started := time.Now()
	url, err := d.deployer.Deploy(ctx, token, repo.FullName(), d.branch)
	if d.metrics != nil {
		d.metrics.ObserveDeployDuration(time.Since(started))
	}
	if err != nil {
		return err
	}

	emit(protocol.BotEvent{Bot: protocol.BotPayload{
		Message: "App deployed successfully.",
		Link:    url,
	}})
	return nil
}

func (d *Dispatcher) record(ctx context.Context, sessionID string, action Action, outcome, detail string) {
	if d.store == nil {
		return
	}
	err := d.store.RecordAction(ctx, history.ActionRecord{
		SessionID: sessionID,
		Action:    string(action),
		Outcome:   outcome,
		Detail:    detail,
	})
	if err != nil {
		log.Printf("record action history: %v", err)
	}
}

func (d *Dispatcher) count(action Action, outcome string) {
	if d.metrics == nil {
		return
	}
	d.metrics.Commands.WithLabelValues(string(action), outcome).Inc()
}
