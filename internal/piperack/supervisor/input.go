package supervisor

import "fmt"

// SendInputText writes text followed by a newline to id's stdin.
func (s *Supervisor) SendInputText(id, text string) error {
	return s.SendInputBytes(id, []byte(text+"\n"))
}

// SendInputBytes writes raw bytes to id's stdin, or returns an error if the
// process is not running or has no stdin pipe open.
func (s *Supervisor) SendInputBytes(id string, b []byte) error {
	mp := s.lookup(id)
	if mp == nil {
		return fmt.Errorf("unknown process %q", id)
	}
	mp.mu.Lock()
	stdin := mp.stdin
	mp.mu.Unlock()
	if stdin == nil {
		return fmt.Errorf("process %q is not running", id)
	}
	_, err := stdin.Write(b)
	return err
}

// SendInputBytesToAll broadcasts b to every running child's stdin, ignoring
// individual write failures (best-effort).
func (s *Supervisor) SendInputBytesToAll(b []byte) {
	for _, name := range s.specNames() {
		_ = s.SendInputBytes(name, b)
	}
}
