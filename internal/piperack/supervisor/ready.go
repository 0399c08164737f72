package supervisor

import (
	"fmt"
	"net"
	"time"

	"github.com/piperack/piperack/internal/piperack/event"
	"github.com/piperack/piperack/internal/piperack/spec"
)

const (
	tcpProbeInterval = 500 * time.Millisecond
	tcpProbeTimeout  = 60 * time.Second
)

// armReadiness starts the readiness probe appropriate to sp.Ready, once
// per attempt, right after a successful spawn. Log-regex readiness
// is handled inline by the stream reader instead.
func (s *Supervisor) armReadiness(name string, attempt uint64, mp *managedProcess, sp spec.ProcessSpec) {
	switch sp.Ready.Kind {
	case spec.ReadyImmediate:
		mp.mu.Lock()
		mp.ready = true
		mp.mu.Unlock()
		s.fireReady(name, attempt, mp)
	case spec.ReadyDelay:
		go s.probeDelay(name, attempt, mp, sp.Ready.Delay)
	case spec.ReadyTCP:
		go s.probeTCP(name, attempt, mp, sp.Ready.Port)
	case spec.ReadyLog:
		// handled by readStream
	}
}

func (s *Supervisor) probeDelay(name string, attempt uint64, mp *managedProcess, d time.Duration) {
	time.Sleep(d)
	s.fireReady(name, attempt, mp)
}

// probeTCP attempts a loopback connect every 500ms for up to 60s. On
// timeout it emits nothing, leaving dependents permanently Waiting until
// a restart re-arms the probe.
func (s *Supervisor) probeTCP(name string, attempt uint64, mp *managedProcess, port int) {
	addr := fmt.Sprintf("127.0.0.1:%d", port)
	deadline := time.Now().Add(tcpProbeTimeout)
	ticker := time.NewTicker(tcpProbeInterval)
	defer ticker.Stop()

	for {
		if mp.currentAttempt() != attempt {
			return // superseded by a restart; this probe is stale
		}
		conn, err := net.DialTimeout("tcp", addr, tcpProbeInterval)
		if err == nil {
			conn.Close()
			s.fireReady(name, attempt, mp)
			return
		}
		if time.Now().After(deadline) {
			return
		}
		<-ticker.C
	}
}
