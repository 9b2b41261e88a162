package main

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/brenohof/fiberspace/fiber"
)

var (
	topTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#3b82f6")).MarginBottom(1)
	topHeadStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#94a3b8"))
	topRunStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#10b981")).Bold(true)
	topReadyStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffffff"))
	topBlockStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#f59e0b"))
	topDoneStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748b"))
	topHelpStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#64748b")).MarginTop(1)
)

func newTopCommand() *cobra.Command {
	var workers int
	var slice time.Duration

	cmd := &cobra.Command{
		Use:   "top",
		Short: "Live dashboard of the fiber ring",
		Long:  "Spawns a scheduler with a handful of long-running demo fibers and renders the ring as it runs.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := fiber.DefaultConfig()
			if slice > 0 {
				cfg.Slice = slice
			}
			sched := fiber.NewScheduler(cfg)
			sched.Start()
			defer sched.Stop()

			for i := 0; i < workers; i++ {
				sched.Create(func(fiber.Val) {
					for {
						time.Sleep(10 * time.Millisecond)
						sched.Checkpoint()
					}
				}, nil)
			}

			p := tea.NewProgram(newTopModel(sched), tea.WithAltScreen())
			_, err := p.Run()
			return err
		},
	}

	cmd.Flags().IntVar(&workers, "workers", 4, "number of perpetual demo fibers to run")
	cmd.Flags().DurationVar(&slice, "slice", 0, "override the scheduler's time slice (e.g. 10ms)")
	return cmd
}

type topTickMsg struct{}

type topModel struct {
	sched   *fiber.Scheduler
	sub     <-chan struct{}
	spinner spinner.Model
	infos   []fiber.FiberInfo
	stats   fiber.Snapshot
}

func newTopModel(sched *fiber.Scheduler) topModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = topRunStyle
	return topModel{
		sched:   sched,
		sub:     sched.Subscribe(),
		spinner: s,
	}
}

func (m topModel) Init() tea.Cmd {
	return tea.Batch(m.waitForSwitch(), m.spinner.Tick)
}

// waitForSwitch blocks on the scheduler's subscription channel in its own
// goroutine and delivers a tea.Msg once a context switch happens, rather
// than redrawing on a fixed-rate ticker unrelated to actual scheduler
// activity.
func (m topModel) waitForSwitch() tea.Cmd {
	return func() tea.Msg {
		<-m.sub
		return topTickMsg{}
	}
}

func (m topModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.String() == "q" || msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
	case topTickMsg:
		m.infos, m.stats = m.sched.Snapshot()
		return m, m.waitForSwitch()
	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m topModel) View() string {
	var b strings.Builder
	b.WriteString(topTitleStyle.Render("fiberctl top"))
	b.WriteByte('\n')
	b.WriteString(fmt.Sprintf("created=%d finished=%d joins=%d switches=%d live=%d\n\n",
		m.stats.FibersCreated, m.stats.FibersFinished, m.stats.Joins,
		m.stats.ContextSwitches, len(m.infos)))

	b.WriteString(topHeadStyle.Render(fmt.Sprintf("%-14s %-9s %8s  %s", "FID", "STATUS", "SLICES", "")))
	b.WriteByte('\n')

	infos := append([]fiber.FiberInfo(nil), m.infos...)
	sort.Slice(infos, func(i, j int) bool { return infos[i].Name < infos[j].Name })

	for _, info := range infos {
		row := fmt.Sprintf("%-14s %-9s %8d", info.ID.String(), info.Status.String(), info.SliceCount)
		marker := ""
		style := topReadyStyle
		switch {
		case info.Running:
			style = topRunStyle
			marker = m.spinner.View() + " running"
		case info.Status == fiber.StatusBlocked:
			style = topBlockStyle
		case info.Status == fiber.StatusFinished:
			style = topDoneStyle
		}
		b.WriteString(style.Render(row + "  " + marker))
		b.WriteByte('\n')
	}

	b.WriteString(topHelpStyle.Render("q: quit"))
	return b.String()
}
