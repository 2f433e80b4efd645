package main

import (
	"context"
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/NimbleMarkets/ntcharts/canvas/runes"
	"github.com/NimbleMarkets/ntcharts/linechart/streamlinechart"

	"github.com/hafnium49/phosphobot/pkg/channels"
	"github.com/hafnium49/phosphobot/pkg/segment"
)

type PreviewCommand struct {
	Dataset   string  `long:"dataset" description:"Hub repository id (org/name)"`
	Local     string  `long:"local" description:"Local dataset directory (takes precedence over --dataset)"`
	Episode   int     `long:"episode" default:"0" description:"Episode index"`
	VelThresh float64 `long:"vel-thresh" default:"0.03" description:"Velocity plateau threshold"`
	Window    int     `long:"window" default:"15" description:"Minimum plateau length in frames"`
	NoCache   bool    `long:"no-cache" description:"Disable the local shard cache"`
	CacheDir  string  `long:"cache-dir" description:"Shard cache directory"`
}

const (
	previewHeaderHeight = 2
	previewLegendHeight = 2
	previewFooterHeight = 7
	previewBorderSize   = 2
)

var actorColors = []string{
	"51",  // cyan
	"201", // magenta
	"226", // yellow
	"46",  // green
}

var (
	previewTitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	previewChartStyle  = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("240"))
	previewStatusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// actorSeries is one actor's motion signal with its detected plateaus.
type actorSeries struct {
	actor    string
	velocity []float64
	plateaus []segment.Plateau
}

type previewModel struct {
	title    string
	cfg      segment.Config
	series   []actorSeries
	chart    *streamlinechart.Model
	width    int
	height   int
	quitting bool
}

func (c *PreviewCommand) Execute(args []string) error {
	src, cleanup, err := openSource(c.Dataset, c.Local, c.NoCache, c.CacheDir)
	if err != nil {
		return err
	}
	defer cleanup()

	table, meta, err := src.FetchEpisode(context.Background(), c.Episode)
	if err != nil {
		return err
	}
	matrix, err := channels.Normalize(table)
	if err != nil {
		return err
	}
	sets, _ := channels.Classify(matrix, nil)

	cfg := segment.DefaultConfig()
	cfg.VelocityThreshold = c.VelThresh
	cfg.WindowSize = c.Window

	var series []actorSeries
	for _, s := range sets {
		signal := s.JointPositions
		if signal == nil {
			signal = s.CartesianPose
		}
		vel := segment.VelocityMagnitude(signal)
		if vel == nil {
			continue
		}
		series = append(series, actorSeries{
			actor:    s.Actor,
			velocity: vel,
			plateaus: segment.Detect(signal, cfg),
		})
	}
	if len(series) == 0 {
		return fmt.Errorf("episode has no motion channels to preview")
	}

	title := fmt.Sprintf("%s (episode %d)", meta.Dataset, meta.Episode)
	p := tea.NewProgram(newPreviewModel(title, cfg, series), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("run preview: %w", err)
	}
	return nil
}

func newPreviewModel(title string, cfg segment.Config, series []actorSeries) previewModel {
	maxVel := cfg.VelocityThreshold
	for _, s := range series {
		for _, v := range s.velocity {
			if v > maxVel {
				maxVel = v
			}
		}
	}

	chart := streamlinechart.New(80, 20,
		streamlinechart.WithYRange(0, maxVel*1.1),
	)
	for i, s := range series {
		style := lipgloss.NewStyle().Foreground(lipgloss.Color(actorColors[i%len(actorColors)]))
		chart.SetDataSetStyles(s.actor, runes.ThinLineStyle, style)
		for _, v := range s.velocity {
			chart.PushDataSet(s.actor, v)
		}
	}
	chart.DrawAll()

	return previewModel{
		title:  title,
		cfg:    cfg,
		series: series,
		chart:  &chart,
	}
}

func (m previewModel) Init() tea.Cmd {
	return nil
}

func (m previewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.resizeChart()
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		}
	}
	return m, nil
}

func (m *previewModel) chartSize() (width, height int) {
	if m.width == 0 || m.height == 0 {
		return 80, 20
	}
	width = m.width - previewBorderSize - 2
	if width < 40 {
		width = 40
	}
	height = m.height - previewHeaderHeight - previewLegendHeight - previewFooterHeight - previewBorderSize
	if height < 10 {
		height = 10
	}
	return width, height
}

func (m *previewModel) resizeChart() {
	w, h := m.chartSize()
	m.chart.Resize(w, h)
	m.chart.DrawAll()
}

func (m previewModel) View() string {
	if m.quitting {
		return "Preview closed.\n"
	}

	var sb strings.Builder

	sb.WriteString(previewTitleStyle.Render("demo2rule preview"))
	sb.WriteString(fmt.Sprintf(" - %s  thresh=%.3g window=%d",
		m.title, m.cfg.VelocityThreshold, m.cfg.WindowSize))
	sb.WriteString("\n\n")

	sb.WriteString(previewChartStyle.Render(m.chart.View()))
	sb.WriteString("\n")

	sb.WriteString(m.renderLegend())
	sb.WriteString("\n")

	footStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(m.width - 4)
	sb.WriteString(footStyle.Render(m.renderPlateaus()))
	sb.WriteString("\n")

	return sb.String()
}

func (m previewModel) renderLegend() string {
	var items []string
	for i, s := range m.series {
		colorStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color(actorColors[i%len(actorColors)])).Bold(true)
		items = append(items, colorStyle.Render("━━")+" "+s.actor)
	}
	return strings.Join(items, "  ")
}

func (m previewModel) renderPlateaus() string {
	var lines []string
	for _, s := range m.series {
		var spans []string
		for _, p := range s.plateaus {
			spans = append(spans, fmt.Sprintf("[%d-%d]@%d", p.Start, p.End, p.Rep))
		}
		if spans == nil {
			spans = []string{"none"}
		}
		lines = append(lines, fmt.Sprintf("%s: %d plateaus %s",
			s.actor, len(s.plateaus), strings.Join(spans, " ")))
	}
	lines = append(lines, previewStatusStyle.Render("Press 'q' to quit"))
	return strings.Join(lines, "\n")
}
