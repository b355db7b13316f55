// SPDX-License-Identifier: MIT

// Package tui shows rendered images in the terminal.
package tui

import (
	"fmt"
	"image"
	"math"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5")).
			Background(lipgloss.Color("#25A065")).
			Padding(0, 1).
			Bold(true)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFDF5"))
)

var (
	quitKeys  = key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"))
	scaleUp   = key.NewBinding(key.WithKeys("+", "="))
	scaleDown = key.NewBinding(key.WithKeys("-"))
)

const (
	// chrome is the number of terminal rows taken by the title and help.
	chrome     = 4
	maxZoomOut = 16
)

// upperHalf paints the top pixel of a cell in the foreground colour and the
// bottom pixel in the background colour.
const upperHalf = "▀"

// ImageViewModel is the Bubble Tea model for viewing one image.
type ImageViewModel struct {
	img      image.Image
	title    string
	viewport viewport.Model
	ready    bool
	width    int
	// zoom is the number of image pixels per terminal column beyond what
	// fitting to the window needs.
	zoom int
}

// NewImageViewModel creates a viewer for img.
func NewImageViewModel(img image.Image, title string) ImageViewModel {
	return ImageViewModel{img: img, title: title, zoom: 1}
}

func (m ImageViewModel) Init() tea.Cmd {
	return nil
}

func (m ImageViewModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		if !m.ready {
			m.viewport = viewport.New(msg.Width, max(msg.Height-chrome, 1))
			m.viewport.Style = lipgloss.NewStyle()
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = max(msg.Height-chrome, 1)
		}
		m.viewport.SetContent(m.render())

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, quitKeys):
			return m, tea.Quit
		case key.Matches(msg, scaleUp):
			if m.zoom > 1 {
				m.zoom--
				m.viewport.SetContent(m.render())
			}
		case key.Matches(msg, scaleDown):
			if m.zoom < maxZoomOut {
				m.zoom++
				m.viewport.SetContent(m.render())
			}
		}
	}

	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m ImageViewModel) View() string {
	if !m.ready {
		return "Initializing..."
	}
	b := m.img.Bounds()
	title := titleStyle.Render(fmt.Sprintf("%s (%dx%d)", m.title, b.Dx(), b.Dy()))
	help := infoStyle.Render("↑/↓: Scroll • +/-: Zoom • q: Quit")
	return fmt.Sprintf("%s\n\n%s\n\n%s", title, m.viewport.View(), help)
}

// render draws the image at the current zoom into a string.
func (m ImageViewModel) render() string {
	cols := m.img.Bounds().Dx()
	if m.width > 0 {
		cols = min(cols, m.width)
	}
	return RenderImage(m.img, max(cols/m.zoom, 1))
}

// RenderImage draws img cols characters wide, two pixel rows per line,
// sampling the nearest pixel.
func RenderImage(img image.Image, cols int) string {
	b := img.Bounds()
	if b.Empty() || cols <= 0 {
		return ""
	}
	cols = min(cols, b.Dx())
	scale := float64(b.Dx()) / float64(cols)
	rows := int(math.Ceil(float64(b.Dy()) / scale / 2))

	var sb strings.Builder
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x := b.Min.X + int(float64(c)*scale)
			top := b.Min.Y + int(float64(2*r)*scale)
			bottom := b.Min.Y + int(float64(2*r+1)*scale)

			style := lipgloss.NewStyle().Foreground(hex(img, x, top))
			if bottom < b.Max.Y {
				style = style.Background(hex(img, x, bottom))
			}
			sb.WriteString(style.Render(upperHalf))
		}
		if r < rows-1 {
			sb.WriteByte('\n')
		}
	}
	return sb.String()
}

func hex(img image.Image, x, y int) lipgloss.Color {
	r, g, b, _ := img.At(x, y).RGBA()
	return lipgloss.Color(fmt.Sprintf("#%02x%02x%02x", r>>8, g>>8, b>>8))
}

// Show displays img full screen until the user quits.
func Show(img image.Image, title string) error {
	p := tea.NewProgram(
		NewImageViewModel(img, title),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
