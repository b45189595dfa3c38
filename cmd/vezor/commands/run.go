package commands

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"runtime"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
)

type RunCmd struct {
	Group   string   `help:"Inject a server-defined group." short:"g"`
	Tag     []string `help:"Inject secrets matching a tag (key=value). Repeatable." short:"t"`
	Env     string   `help:"Shorthand for --tag env=<name>." short:"e"`
	EnvFile string   `name:"env-file" help:"Overlay variables from a local dotenv file. Local values win."`
	Command []string `arg:"" optional:"" name:"command" help:"Command to run with secrets in its environment."`
}

func (c *RunCmd) Run(ctx *cliCtx) error {
	if err := validateCommand(c.Command); err != nil {
		return err
	}

	client, err := setupClient(ctx)
	if err != nil {
		return err
	}
	envVars, err := resolveSecrets(ctx, client, c.Group, c.Tag, c.Env)
	if err != nil {
		return err
	}
	if c.EnvFile != "" {
		local, err := godotenv.Read(c.EnvFile)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", c.EnvFile, err)
		}
		for k, v := range local {
			envVars[k] = v
		}
	}
	envVars = sanitizeEnvVars(envVars)
	if len(envVars) == 0 {
		ctx.Logger.Warn("no secrets matched, running with the ambient environment only")
	}
	return execCommand(ctx, c.Command, envVars)
}

// execCommand runs argv with extra variables appended to the ambient
// environment, forwarding SIGINT/SIGTERM and propagating the child's
// exit code.
func execCommand(ctx *cliCtx, argv []string, extra map[string]string) error {
	ctx.Logger.Debug("running command", "command", strings.Join(argv, " "), "secrets", len(extra))

	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Env = os.Environ()
	for k, v := range extra {
		cmd.Env = append(cmd.Env, k+"="+v)
	}
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	setProcessGroup(cmd)

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("error starting command: %w", err)
	}
	ctx.Logger.Debug("started process", "pid", cmd.Process.Pid)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case sig := <-sigChan:
		// Forward and exit; the child owns the terminal from here.
		ctx.Logger.Debug("forwarding signal", "signal", sig.String(), "pid", cmd.Process.Pid)
		forwardSignal(cmd, sig)
		return nil
	case err := <-done:
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		if err != nil {
			return fmt.Errorf("error running command: %w", err)
		}
		return nil
	}
}

// validateCommand rejects argv strings that could smuggle shell
// constructs past exec's no-shell invocation.
func validateCommand(command []string) error {
	if len(command) == 0 {
		return fmt.Errorf("no command specified to run")
	}
	for _, arg := range command {
		if strings.Contains(arg, "$(") || strings.Contains(arg, "`") {
			return fmt.Errorf("command contains potentially unsafe shell metacharacters")
		}
		if runtime.GOOS == "windows" {
			if i := strings.IndexAny(arg, `&|^<>`); i >= 0 {
				return fmt.Errorf("command contains potentially unsafe Windows metacharacter: %c", arg[i])
			}
			if strings.Count(arg, "%") > 1 {
				return fmt.Errorf("command contains potentially unsafe Windows metacharacters")
			}
		}
	}
	return nil
}

// sanitizeEnvVars drops keys that cannot survive the KEY=VALUE
// environment encoding.
func sanitizeEnvVars(vars map[string]string) map[string]string {
	if vars == nil {
		return nil
	}
	clean := make(map[string]string, len(vars))
	for k, v := range vars {
		if strings.ContainsAny(k, "=;\n") {
			continue
		}
		clean[k] = v
	}
	return clean
}
