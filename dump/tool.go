package dump

import (
	"bytes"
	"context"
	"io"
	"io/fs"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/pkg/errors"
)

const (
	DefaultDumpPath = "db_dump"
	DefaultStatPath = "db_stat"
)

var (
	// ErrToolMissing is returned when an external utility cannot be launched.
	ErrToolMissing = errors.New("dump: external utility not found")
	// ErrStatsTimeout is returned when the stat utility does not answer in time.
	ErrStatsTimeout = errors.New("dump: stats timed out")
)

// Tool launches the external dump and stat utilities.
type Tool struct {
	DumpPath string
	StatPath string
	// Args are passed before the database path to the dump utility.
	Args []string
}

func (t Tool) dumpPath() string {
	if t.DumpPath == "" {
		return DefaultDumpPath
	}
	return t.DumpPath
}

func (t Tool) statPath() string {
	if t.StatPath == "" {
		return DefaultStatPath
	}
	return t.StatPath
}

func toolError(name string, err error) error {
	if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
		return errors.Wrapf(ErrToolMissing, "%s: %v (install the Berkeley DB utilities or set dump.dumpPath/dump.statPath in config)", name, err)
	}
	return errors.Wrapf(err, "dump: failed to start %s", name)
}

// Dump starts a fresh dump process for dbPath. Each call is a new stream.
func (t Tool) Dump(ctx context.Context, dbPath string) (*Stream, error) {
	args := append(append([]string{}, t.Args...), dbPath)
	cmd := exec.CommandContext(ctx, t.dumpPath(), args...)
	stderr := &limitedBuffer{limit: 4096}
	cmd.Stderr = stderr
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, errors.Wrap(err, "dump: stdout pipe")
	}
	if err := cmd.Start(); err != nil {
		return nil, toolError(t.dumpPath(), err)
	}
	return NewStream(ctx, stdout, &process{cmd: cmd, name: t.dumpPath(), stderr: stderr}), nil
}

// DumpFile streams previously captured dump output from a file.
func (t Tool) DumpFile(ctx context.Context, path string) (*Stream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "dump: failed to open %s", path)
	}
	return NewStream(ctx, f, f), nil
}

// Stats runs the stat utility and parses its output. The context deadline
// bounds the call; elapsing it is reported as ErrStatsTimeout.
func (t Tool) Stats(ctx context.Context, dbPath string) (*Stats, error) {
	cmd := exec.CommandContext(ctx, t.statPath(), "-d", dbPath)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Start(); err != nil {
		return nil, toolError(t.statPath(), err)
	}
	err := cmd.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		if errors.Is(ctxErr, context.DeadlineExceeded) {
			return nil, ErrStatsTimeout
		}
		return nil, ctxErr
	}
	if err != nil {
		msg := strings.TrimSpace(stderr.String())
		return nil, errors.Wrapf(err, "dump: %s failed: %s", t.statPath(), msg)
	}
	return ParseStats(stdout.String()), nil
}

// process terminates and reaps the dump utility.
type process struct {
	cmd    *exec.Cmd
	name   string
	stderr *limitedBuffer
	once   sync.Once
	err    error
}

// wait reaps the process and reports a failed exit with its stderr.
func (p *process) wait() error {
	p.once.Do(func() {
		err := p.cmd.Wait()
		if err == nil {
			return
		}
		msg := strings.TrimSpace(p.stderr.String())
		p.err = errors.Wrapf(err, "dump: %s failed: %s", p.name, msg)
	})
	return p.err
}

func (p *process) Close() error {
	if p.cmd.Process != nil && p.cmd.ProcessState == nil {
		_ = p.cmd.Process.Kill()
	}
	_ = p.wait()
	return nil
}

type limitedBuffer struct {
	bytes.Buffer
	limit int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	if room := b.limit - b.Len(); room > 0 {
		if len(p) > room {
			b.Buffer.Write(p[:room])
		} else {
			b.Buffer.Write(p)
		}
	}
	return len(p), nil
}

var _ io.Writer = (*limitedBuffer)(nil)
