package validation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	log "github.com/geoknoesis/cimshacl/internal/logging"
	"github.com/geoknoesis/cimshacl/rdf"
)

// ExecOracle runs a pyshacl compatible command line validator. Both graphs
// are written as N-Triples to a private temporary directory and the report
// is read back as N-Triples. owl:imports are already resolved, so the
// command is never asked to follow them.
type ExecOracle struct {
	Command string
	// Args are passed before the generated arguments.
	Args      []string
	Inference string
	Timeout   time.Duration
	// TempDir holds the scratch directory; empty uses the system default.
	TempDir string
}

// Validate implements Oracle. Exit status 0 means conforms and 1 means
// violations were found; anything else is a failure.
func (o *ExecOracle) Validate(ctx context.Context, data, shapes *rdf.Graph) (*Verdict, error) {
	if o.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.Timeout)
		defer cancel()
	}
	start := time.Now()
	defer func() { oracleDuration.Observe(time.Since(start).Seconds()) }()

	dir, err := os.MkdirTemp(o.TempDir, "cimshacl-")
	if err != nil {
		return nil, fmt.Errorf("%w: scratch directory: %w", ErrOracleFailed, err)
	}
	defer os.RemoveAll(dir)

	dataPath := filepath.Join(dir, "data.nt")
	shapesPath := filepath.Join(dir, "shapes.nt")
	reportPath := filepath.Join(dir, "report.nt")
	if err := writeGraphFile(dataPath, data); err != nil {
		return nil, err
	}
	if err := writeGraphFile(shapesPath, shapes); err != nil {
		return nil, err
	}

	inference := o.Inference
	if inference == "" {
		inference = "none"
	}
	args := append(append([]string(nil), o.Args...),
		"-s", shapesPath,
		"-sf", "nt",
		"-df", "nt",
		"-i", inference,
		"-f", "nt",
		"-o", reportPath,
		dataPath,
	)

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, o.Command, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.WaitDelay = time.Second

	log.Ctx(ctx).Debug().Str("command", o.Command).Strs("args", args).Msg("running validator")
	runErr := cmd.Run()

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) || ctx.Err() != nil {
			if ctx.Err() != nil {
				runErr = ctx.Err()
			}
			return nil, fmt.Errorf("%w: %s: %w", ErrOracleFailed, o.Command, runErr)
		}
		exitCode = exitErr.ExitCode()
	}
	if exitCode != 0 && exitCode != 1 {
		return nil, fmt.Errorf("%w: %s exited with status %d: %s", ErrOracleFailed, o.Command, exitCode, strings.TrimSpace(stderr.String()))
	}

	diag, err := readGraphFile(ctx, reportPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading report: %w", ErrOracleFailed, err)
	}

	verdict := &Verdict{Conforms: exitCode == 0, Diagnostics: diag}
	if reported, ok := Conforms(diag); ok && reported != verdict.Conforms {
		log.Ctx(ctx).Warn().Int("exit", exitCode).Bool("reported", reported).Msg("validator exit status disagrees with report, trusting report")
		verdict.Conforms = reported
	}

	var text strings.Builder
	if err := WriteText(&text, verdict.Conforms, Results(diag)); err != nil {
		return nil, err
	}
	verdict.Text = text.String()
	return verdict, nil
}

func writeGraphFile(path string, g *rdf.Graph) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrOracleFailed, err)
	}
	if err := rdf.WriteGraph(f, g, rdf.FormatNTriples); err != nil {
		f.Close()
		return fmt.Errorf("%w: writing %s: %w", ErrOracleFailed, filepath.Base(path), err)
	}
	return f.Close()
}

func readGraphFile(ctx context.Context, path string) (*rdf.Graph, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return rdf.ReadGraph(ctx, f, rdf.FormatNTriples)
}
