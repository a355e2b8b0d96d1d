package link

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/tomb.v2"
)

const frameBuffer = 16

// Framer splits a byte stream into frames on its own goroutine.
//
// Thread-safety: ReadFrame, Drain and Buffered may be called from one
// consumer goroutine; Close from any.
type Framer struct {
	r      io.Reader
	frames chan string
	t      tomb.Tomb
}

// NewFramer starts reading r.
func NewFramer(r io.Reader) *Framer {
	f := &Framer{r: r, frames: make(chan string, frameBuffer)}
	f.t.Go(f.loop)
	return f
}

func (f *Framer) loop() error {
	br := bufio.NewReader(f.r)
	for {
		line, err := br.ReadString('\n')
		if err != nil {
			// A partial line without its delimiter is not a frame.
			return err
		}
		frame := strings.TrimSpace(line)
		if frame == "" {
			continue
		}
		select {
		case f.frames <- frame:
		case <-f.t.Dying():
			return nil
		}
	}
}

// ReadFrame waits up to timeout for the next frame.
func (f *Framer) ReadFrame(ctx context.Context, timeout time.Duration) (string, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case frame := <-f.frames:
		return frame, nil
	case <-timer.C:
		return "", ErrTimeout
	case <-ctx.Done():
		return "", ctx.Err()
	case <-f.t.Dying():
		select {
		case frame := <-f.frames:
			return frame, nil
		default:
		}
		return "", f.closedErr()
	}
}

func (f *Framer) closedErr() error {
	<-f.t.Dead()
	if err := f.t.Err(); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return ErrClosed
}

// Drain discards frames that arrived but were never read and returns how
// many were dropped.
func (f *Framer) Drain() int {
	n := 0
	for {
		select {
		case <-f.frames:
			n++
		default:
			return n
		}
	}
}

// Buffered returns the number of frames waiting to be read.
func (f *Framer) Buffered() int { return len(f.frames) }

// Close stops the reader. If the stream is an io.Closer it is closed to
// unblock a pending read; otherwise Close waits for that read to return.
func (f *Framer) Close() error {
	f.t.Kill(nil)
	if c, ok := f.r.(io.Closer); ok {
		_ = c.Close()
	}
	err := f.t.Wait()
	if err == nil || errors.Is(err, io.EOF) || errors.Is(err, io.ErrClosedPipe) {
		return nil
	}
	return err
}
