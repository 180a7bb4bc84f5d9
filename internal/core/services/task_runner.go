package services

import (
	"bufio"
	"context"
	"errors"
	"os/exec"
	"strings"

	"github.com/pipdock/backend/internal/infrastructure/logger"
)

// TaskRunner executes one external command to completion, translating
// its merged stdout/stderr stream into task progress updates. Failures
// never surface as error values: the caller gets a boolean and the
// task record carries the details.
type TaskRunner struct {
	store  *TaskStore
	logger *logger.Logger
}

func NewTaskRunner(store *TaskStore, log *logger.Logger) *TaskRunner {
	return &TaskRunner{store: store, logger: log}
}

// Run starts argv, reads its output line by line in a single pass and
// applies parser signals to the task. Exit code zero is success; if no
// completion marker pushed progress to 100 by then, a final
// (100, "done") update is forced. Spawn and read errors are recorded
// on the task and reported as failure.
func (r *TaskRunner) Run(ctx context.Context, argv []string, taskID, label string) bool {
	if len(argv) == 0 {
		r.store.SetProgress(taskID, 100, "error: empty command")
		return false
	}

	name := label
	if name == "" {
		name = argv[0]
	}
	r.store.SetProgress(taskID, 0, "starting "+name)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		r.store.SetProgress(taskID, 100, "error: "+err.Error())
		return false
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		r.logger.Errorw("command_start_failed", "task_id", taskID, "argv", argv, "error", err)
		r.store.SetProgress(taskID, 100, "error: "+err.Error())
		return false
	}

	parser := NewOutputParser()
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		r.logger.Infow("command_output", "task_id", taskID, "line", line)

		if sig := parser.Classify(line); sig != nil {
			r.store.SetProgress(taskID, sig.Percent, sig.Message)
		}
	}
	scanErr := scanner.Err()
	waitErr := cmd.Wait()

	if scanErr != nil {
		r.logger.Errorw("command_read_failed", "task_id", taskID, "error", scanErr)
		r.store.SetProgress(taskID, 100, "error: "+scanErr.Error())
		return false
	}

	if waitErr != nil {
		r.logger.Warnw("command_failed", "task_id", taskID, "argv", argv, "error", waitErr)
		return false
	}

	if parser.Highest() < 100 {
		r.store.SetProgress(taskID, 100, "done")
	}
	return true
}

// RunCombined executes a short command and returns its combined
// output, for synchronous callers that only need the text.
func (r *TaskRunner) RunCombined(ctx context.Context, argv []string) (string, error) {
	if len(argv) == 0 {
		return "", errors.New("runner: empty command")
	}
	out, err := exec.CommandContext(ctx, argv[0], argv[1:]...).CombinedOutput()
	return string(out), err
}
