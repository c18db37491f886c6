package executor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/tosit-io/tdp/internal/depmodel"
)

// Shell is the default Executor: it runs a playbook-style script named
// after the operation (<scriptsDir>/<operation name>.sh) per spec.md's
// DOMAIN STACK shell executor, adapting Streamy's command plugin shell
// selection and streamed-output capture.
type Shell struct {
	ScriptsDir string
	Shell      string // optional override; auto-detected when empty
}

func (s Shell) Execute(op depmodel.Operation, host string, extraVars map[string]interface{}) (depmodel.OperationState, []byte) {
	script := filepath.Join(s.ScriptsDir, op.Name+".sh")
	shell, shellArgs, err := determineShell(s.Shell)
	if err != nil {
		return depmodel.OperationFailure, []byte(err.Error())
	}

	cmd := exec.CommandContext(context.Background(), shell, append(shellArgs, script)...)
	cmd.Env = buildEnv(host, extraVars)

	logs, err := runCaptured(cmd)
	if err != nil {
		if len(logs) == 0 {
			logs = []byte(err.Error())
		}
		return depmodel.OperationFailure, logs
	}
	return depmodel.OperationSuccess, logs
}

// runCaptured runs cmd to completion, mirroring its stdout/stderr to the
// parent process's own stdout/stderr (so a foreground `tdp deploy` still
// shows live playbook output) while also buffering them into the
// OperationLog entry the Store ultimately persists: stderr takes priority
// over stdout as the failure's explanation, since a failing shell script
// conventionally writes its error there.
func runCaptured(cmd *exec.Cmd) ([]byte, error) {
	var stdoutBuf, stderrBuf bytes.Buffer
	cmd.Stdout = io.MultiWriter(os.Stdout, &stdoutBuf)
	cmd.Stderr = io.MultiWriter(os.Stderr, &stderrBuf)

	err := cmd.Run()

	stdout := strings.TrimSpace(stdoutBuf.String())
	stderr := strings.TrimSpace(stderrBuf.String())
	if err != nil && stderr != "" {
		return []byte(stderr), err
	}
	return []byte(stdout), err
}

func determineShell(explicit string) (string, []string, error) {
	if explicit != "" {
		return explicit, []string{"-c"}, nil
	}
	if runtime.GOOS == "windows" {
		return "cmd", []string{"/C"}, nil
	}
	if path, err := exec.LookPath("bash"); err == nil {
		return path, []string{"-c"}, nil
	}
	if path, err := exec.LookPath("sh"); err == nil {
		return path, []string{"-c"}, nil
	}
	return "", nil, fmt.Errorf("no suitable shell found")
}

func buildEnv(host string, extraVars map[string]interface{}) []string {
	env := os.Environ()
	if host != "" {
		env = append(env, "TDP_HOST="+host)
	}
	for k, v := range extraVars {
		env = append(env, fmt.Sprintf("TDP_VAR_%s=%v", k, v))
	}
	return env
}
