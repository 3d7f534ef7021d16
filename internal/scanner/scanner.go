// Package scanner finds engine processes left behind by an earlier run by
// walking the Linux /proc filesystem. No CGO is required.
package scanner

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// ProcessInfo describes one discovered process.
type ProcessInfo struct {
	PID        int
	BinaryName string
	Args       []string
}

// Scanner reads process information below a procfs root.
type Scanner struct {
	root string
	uid  int
	self int
}

// New returns a Scanner over /proc for processes owned by the current user.
func New() *Scanner {
	return NewAt("/proc", os.Getuid(), os.Getpid())
}

// NewAt returns a Scanner over an arbitrary procfs root. Processes not owned
// by uid, and the process self, are never reported.
func NewAt(root string, uid, self int) *Scanner {
	return &Scanner{root: root, uid: uid, self: self}
}

// ListAllPIDs returns all PIDs owned by the scanner's user.
func (s *Scanner) ListAllPIDs() ([]int, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.root, err)
	}

	var pids []int
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		pid, err := strconv.Atoi(entry.Name())
		if err != nil || pid <= 0 || pid == s.self {
			continue
		}
		uid, err := s.readUID(pid)
		if err != nil || uid != s.uid {
			continue
		}
		pids = append(pids, pid)
	}
	return pids, nil
}

// FindByName returns processes whose comm matches binary. binary may be a
// path; only its base name is compared. The kernel truncates comm to 15
// bytes, so longer names are compared on that prefix.
func (s *Scanner) FindByName(binary string) ([]ProcessInfo, error) {
	want := filepath.Base(binary)
	if len(want) > 15 {
		want = want[:15]
	}

	pids, err := s.ListAllPIDs()
	if err != nil {
		return nil, err
	}

	var found []ProcessInfo
	for _, pid := range pids {
		name, err := s.readComm(pid)
		if err != nil || name != want {
			continue
		}
		// A process can exit between the comm and cmdline reads.
		args, _ := s.readArgs(pid)
		found = append(found, ProcessInfo{PID: pid, BinaryName: name, Args: args})
	}
	return found, nil
}

func (s *Scanner) path(pid int, file string) string {
	return filepath.Join(s.root, strconv.Itoa(pid), file)
}

func (s *Scanner) readComm(pid int) (string, error) {
	data, err := os.ReadFile(s.path(pid, "comm"))
	if err != nil {
		return "", fmt.Errorf("read comm for pid %d: %w", pid, err)
	}
	return strings.TrimSpace(string(data)), nil
}

// readArgs reads argv from cmdline, which is null-byte separated.
func (s *Scanner) readArgs(pid int) ([]string, error) {
	data, err := os.ReadFile(s.path(pid, "cmdline"))
	if err != nil {
		return nil, fmt.Errorf("read cmdline for pid %d: %w", pid, err)
	}
	trimmed := bytes.TrimRight(data, "\x00")
	if len(trimmed) == 0 {
		return nil, nil
	}
	parts := bytes.Split(trimmed, []byte{0})
	args := make([]string, len(parts))
	for i, p := range parts {
		args[i] = string(p)
	}
	return args, nil
}

// readUID reads the real UID from status.
func (s *Scanner) readUID(pid int) (int, error) {
	f, err := os.Open(s.path(pid, "status"))
	if err != nil {
		return -1, err
	}
	defer f.Close()

	sc := bufio.NewScanner(f)
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "Uid:") {
			fields := strings.Fields(line)
			if len(fields) >= 2 {
				return strconv.Atoi(fields[1])
			}
		}
	}
	return -1, fmt.Errorf("Uid not found in status for pid %d", pid)
}
