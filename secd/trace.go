package secd

import "fmt"

// trace writes the register dump that precedes each instruction when
// Machine.Trace is set.
func (m *Machine) trace() error {
	if _, err := fmt.Fprintf(m.Trace, "op: %d %s\n", int(m.op), m.op); err != nil {
		return err
	}
	log.Debug("step", "run", m.id.String(), "step", m.steps, "op", m.op.String())
	return m.regs.Print(m.Trace)
}
