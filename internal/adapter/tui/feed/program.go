package feed

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"
)

// Program runs the feed model full-screen.
type Program struct {
	program *tea.Program
	sink    *Sink
}

// NewProgram builds the Bubble Tea program. It stops when ctx is cancelled.
func NewProgram(ctx context.Context, deps ModelDeps, opts ...tea.ProgramOption) *Program {
	opts = append([]tea.ProgramOption{
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	}, opts...)
	p := tea.NewProgram(NewModel(deps), opts...)
	return &Program{program: p, sink: NewSink(p.Send)}
}

// Sink returns the view sink that drives this program.
func (p *Program) Sink() *Sink {
	return p.sink
}

// Notify shows err in the notice line.
func (p *Program) Notify(err error) {
	p.program.Send(NoticeMsg{Err: err})
}

// Run blocks until the user quits or the context is cancelled.
func (p *Program) Run() error {
	_, err := p.program.Run()
	if errors.Is(err, tea.ErrProgramKilled) {
		return nil
	}
	return err
}
