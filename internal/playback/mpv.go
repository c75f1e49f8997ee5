package playback

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	ipcConnectRetries = 50
	ipcConnectDelay   = 100 * time.Millisecond
	ipcTimeout        = 2 * time.Second
)

// MPVSink renders a live source in an mpv subprocess and drives it over
// mpv's JSON IPC socket.
type MPVSink struct {
	binary string
	logger zerolog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	ipc    net.Conn
	reader *bufio.Reader
	socket string
	reqID  int
}

func NewMPVSink(binary string, logger zerolog.Logger) *MPVSink {
	return &MPVSink{binary: binary, logger: logger}
}

func (s *MPVSink) Attach(src Source) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cmd != nil {
		s.detachLocked()
	}

	socket := filepath.Join(os.TempDir(), fmt.Sprintf("pixelcast-mpv-%d.sock", os.Getpid()))
	args := []string{
		"--no-terminal",
		"--force-window=yes",
		"--profile=low-latency",
		"--input-ipc-server=" + socket,
	}
	if src.Title != "" {
		args = append(args, "--title="+src.Title)
	}
	args = append(args, src.URL)

	cmd := exec.Command(s.binary, args...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start mpv: %w", err)
	}

	ipc, err := dialIPC(socket)
	if err != nil {
		cmd.Process.Kill()
		cmd.Wait()
		os.Remove(socket)
		return fmt.Errorf("mpv ipc: %w", err)
	}

	s.cmd = cmd
	s.ipc = ipc
	s.reader = bufio.NewReader(ipc)
	s.socket = socket
	return nil
}

func (s *MPVSink) Detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.detachLocked()
}

// SeekToLiveEdge queries the buffered end (demuxer-cache-time) and
// seeks there. With nothing buffered the seek is skipped.
func (s *MPVSink) SeekToLiveEdge() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.ipc == nil {
		return nil
	}

	edge, err := s.getFloatLocked("demuxer-cache-time")
	if err != nil {
		return err
	}
	if edge <= 0 {
		return nil
	}

	_, err = s.commandLocked("seek", edge, "absolute")
	return err
}

func (s *MPVSink) detachLocked() {
	if s.ipc != nil {
		// Ask mpv to quit; fall back to kill below if it will not.
		s.commandLocked("quit")
		s.ipc.Close()
		s.ipc = nil
		s.reader = nil
	}
	if s.cmd != nil {
		done := make(chan struct{})
		go func(cmd *exec.Cmd) {
			cmd.Wait()
			close(done)
		}(s.cmd)
		select {
		case <-done:
		case <-time.After(ipcTimeout):
			s.cmd.Process.Kill()
			<-done
		}
		s.cmd = nil
	}
	if s.socket != "" {
		os.Remove(s.socket)
		s.socket = ""
	}
}

// commandLocked sends one IPC command and waits for its reply, skipping
// interleaved event notifications.
func (s *MPVSink) commandLocked(args ...any) (any, error) {
	if s.ipc == nil {
		return nil, nil
	}

	s.reqID++
	req := struct {
		Command   []any `json:"command"`
		RequestID int   `json:"request_id"`
	}{Command: args, RequestID: s.reqID}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, err
	}
	payload = append(payload, '\n')

	s.ipc.SetDeadline(time.Now().Add(ipcTimeout))
	if _, err := s.ipc.Write(payload); err != nil {
		return nil, err
	}

	for {
		line, err := s.reader.ReadBytes('\n')
		if err != nil {
			return nil, err
		}

		var res struct {
			RequestID int    `json:"request_id"`
			Error     string `json:"error"`
			Data      any    `json:"data"`
			Event     string `json:"event"`
		}
		if err := json.Unmarshal(line, &res); err != nil {
			continue
		}
		if res.Event != "" || res.RequestID != s.reqID {
			continue
		}
		if res.Error != "" && res.Error != "success" {
			return nil, fmt.Errorf("mpv: %s", res.Error)
		}
		return res.Data, nil
	}
}

func (s *MPVSink) getFloatLocked(property string) (float64, error) {
	data, err := s.commandLocked("get_property", property)
	if err != nil {
		return 0, err
	}
	f, ok := data.(float64)
	if !ok {
		return 0, nil
	}
	return f, nil
}

func dialIPC(socket string) (net.Conn, error) {
	var lastErr error
	for i := 0; i < ipcConnectRetries; i++ {
		conn, err := net.Dial("unix", socket)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		time.Sleep(ipcConnectDelay)
	}
	return nil, lastErr
}
