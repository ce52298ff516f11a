package main

import (
	"flag"
	"fmt"
	"image"
	"image/color"
	"log"
	"log/slog"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/cbegin/genradio-go"
	"github.com/cbegin/genradio-go/internal/config"
	"github.com/cbegin/genradio-go/internal/synth"
)

const (
	windowW    = 960
	windowH    = 640
	minWindowW = 720
	minWindowH = 520

	textScale = 2
	charW     = 7 * textScale
	lineH     = 14 * textScale

	scopeLen  = 2048
	trailLife = 90 // ticks a note stays on screen
)

var (
	bgColor       = color.RGBA{192, 192, 192, 255}
	panelColor    = color.RGBA{192, 192, 192, 255}
	borderColor   = color.RGBA{128, 128, 128, 255}
	bevelLight    = color.RGBA{255, 255, 255, 255}
	bevelDarker   = color.RGBA{64, 64, 64, 255}
	sunkenBgColor = color.RGBA{24, 24, 32, 255}
	meterColor    = color.RGBA{0, 0, 128, 255}
	lampOnColor   = color.RGBA{80, 200, 255, 255}
	lampOffColor  = color.RGBA{40, 44, 58, 255}

	// One color per harmonic voice.
	trailColors = []color.NRGBA{
		{255, 180, 80, 255},
		{120, 220, 140, 255},
		{160, 140, 255, 255},
	}
)

// scope keeps the most recent mono output for the waveform view.
type scope struct {
	mu       sync.Mutex
	ring     [scopeLen]float32
	writePos int
}

// Tap runs on the audio thread.
func (s *scope) Tap(samples []float32) {
	s.mu.Lock()
	for i := 0; i+1 < len(samples); i += 2 {
		s.ring[s.writePos] = (samples[i] + samples[i+1]) * 0.5
		s.writePos = (s.writePos + 1) % scopeLen
	}
	s.mu.Unlock()
}

func (s *scope) Snapshot(dst []float32) {
	s.mu.Lock()
	for i := range dst {
		dst[i] = s.ring[(s.writePos+i)%scopeLen]
	}
	s.mu.Unlock()
}

type trailNote struct {
	voice int
	key   int
	born  int
}

type game struct {
	radio  *genradio.Radio
	events <-chan genradio.Event
	scope  *scope
	wave   []float32

	frame        genradio.Frame
	promptHidden bool
	frameTick    int
	trail        []trailNote
	volume       float64
	dragVolume   bool

	status    string
	statusErr bool

	textCache map[string]*ebiten.Image
	viewW     int
	viewH     int
}

// Render and HidePrompt make the game the radio's display. Both run on the
// ebiten update goroutine, inside radio.Tick or radio.Start.
func (g *game) Render(f genradio.Frame) { g.frame = f }
func (g *game) HidePrompt()             { g.promptHidden = true }

func newGame(cfg config.Config, log *slog.Logger) (*game, error) {
	g := &game{
		scope:     &scope{},
		wave:      make([]float32, scopeLen),
		volume:    1,
		status:    "Click Start audio to tune in",
		textCache: make(map[string]*ebiten.Image, 256),
		viewW:     windowW,
		viewH:     windowH,
	}
	r, err := genradio.NewRadio(genradio.DefaultSampleRate,
		genradio.WithConfig(cfg),
		genradio.WithLogger(log),
		genradio.WithDisplay(g),
		genradio.WithSampleTap(g.scope.Tap),
	)
	if err != nil {
		return nil, err
	}
	g.radio = r
	g.events = r.Watch()
	return g, nil
}

func (g *game) Update() error {
	g.frameTick++
	g.radio.Tick()
	g.pollEvents()
	g.handleMouse()
	return nil
}

func (g *game) pollEvents() {
	for {
		select {
		case ev := <-g.events:
			if ev.Kind != genradio.EventNote {
				continue
			}
			key, err := synth.NoteNumber(ev.Pitch)
			if err != nil {
				continue
			}
			g.trail = append(g.trail, trailNote{voice: ev.Index, key: key, born: g.frameTick})
		default:
			kept := g.trail[:0]
			for _, n := range g.trail {
				if g.frameTick-n.born < trailLife {
					kept = append(kept, n)
				}
			}
			g.trail = kept
			return
		}
	}
}

func (g *game) handleMouse() {
	mx, my := ebiten.CursorPosition()
	l := g.layoutRects()
	if inpututil.IsMouseButtonJustPressed(ebiten.MouseButtonLeft) {
		switch {
		case !g.promptHidden && pointInRect(mx, my, l.start):
			g.start()
			return
		case pointInRect(mx, my, l.volume):
			g.dragVolume = true
		}
	}
	if !ebiten.IsMouseButtonPressed(ebiten.MouseButtonLeft) {
		g.dragVolume = false
	}
	if g.dragVolume {
		g.updateVolumeFromMouse(mx, l.volume)
	}
}

func (g *game) start() {
	if err := g.radio.Start(); err != nil {
		g.setError(err.Error() + " (click to retry)")
		return
	}
	g.setStatus("On air")
}

func (g *game) updateVolumeFromMouse(mx int, rect image.Rectangle) {
	trackX := rect.Min.X + 130
	trackW := rect.Dx() - 146
	if trackW <= 0 {
		return
	}
	g.volume = clamp(float64(mx-trackX)/float64(trackW), 0, 1)
	g.radio.SetMasterVolume(g.volume)
}

type uiLayout struct {
	header, start, trail, scope, lamps, volume, status image.Rectangle
}

func (g *game) layoutRects() uiLayout {
	w, h := g.viewW, g.viewH
	pad := 20
	rowH := 44
	statusH := 40

	statusTop := h - pad - statusH
	controlsTop := statusTop - 8 - rowH
	headerH := lineH*6 + 24
	header := image.Rect(pad, pad, w-pad, pad+headerH)

	contentTop := header.Max.Y + 12
	contentBottom := controlsTop - 12
	lampsW := 220
	trailRect := image.Rect(pad, contentTop, w-pad-lampsW-12, contentBottom)
	scopeH := min(140, trailRect.Dy()/3)
	scopeRect := image.Rect(trailRect.Min.X, trailRect.Max.Y-scopeH, trailRect.Max.X, trailRect.Max.Y)
	trailRect.Max.Y = scopeRect.Min.Y - 12
	lamps := image.Rect(trailRect.Max.X+12, contentTop, w-pad, contentBottom)

	startW := 260
	start := image.Rect((w-startW)/2, (contentTop+contentBottom)/2-rowH/2, (w+startW)/2, (contentTop+contentBottom)/2+rowH/2)
	volRight := min(pad+420, w-pad)
	return uiLayout{
		header: header,
		start:  start,
		trail:  trailRect,
		scope:  scopeRect,
		lamps:  lamps,
		volume: image.Rect(pad, controlsTop, volRight, controlsTop+rowH),
		status: image.Rect(pad, statusTop, w-pad, statusTop+statusH),
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	screen.Fill(bgColor)
	l := g.layoutRects()

	g.drawPanel(screen, l.header)
	g.drawHeader(screen, l.header)
	g.drawSunkenPanel(screen, l.trail)
	g.drawTrail(screen, l.trail)
	g.drawDarkPanel(screen, l.scope)
	g.drawScope(screen, l.scope)
	g.drawPanel(screen, l.lamps)
	g.drawLamps(screen, l.lamps)
	g.drawVolumeSlider(screen, l.volume)
	g.drawSunkenPanel(screen, l.status)
	g.drawStatus(screen, l.status)
	if !g.promptHidden {
		g.drawButton(screen, l.start, "Start audio")
	}
}

func (g *game) Layout(outsideW, outsideH int) (int, int) {
	outsideW = max(outsideW, minWindowW)
	outsideH = max(outsideH, minWindowH)
	g.viewW = outsideW
	g.viewH = outsideH
	return outsideW, outsideH
}

func (g *game) Close() { _ = g.radio.Stop() }

func (g *game) drawHeader(screen *ebiten.Image, rect image.Rectangle) {
	x := rect.Min.X + 10
	y := rect.Min.Y + 8
	maxChars := max(8, (rect.Dx()-20)/charW)
	g.drawText(screen, shortenEnd(g.frame.Title, maxChars), x, y)
	y += lineH + 6
	for _, line := range wrap(g.frame.Description, maxChars, 4) {
		g.drawText(screen, line, x, y)
		y += lineH
	}
	g.drawText(screen, g.frame.Elapsed(), x, rect.Max.Y-lineH-6)
}

// drawTrail plots recent harmonic notes: height by pitch, drifting left and
// fading as they age.
func (g *game) drawTrail(screen *ebiten.Image, rect image.Rectangle) {
	const lowKey, highKey = 36, 84
	inner := rect.Inset(6)
	if inner.Dx() < 10 || inner.Dy() < 10 {
		return
	}
	for _, n := range g.trail {
		age := float64(g.frameTick-n.born) / trailLife
		x := float64(inner.Max.X) - age*float64(inner.Dx()) - 16
		k := clamp(float64(n.key-lowKey)/float64(highKey-lowKey), 0, 1)
		y := float64(inner.Max.Y) - k*float64(inner.Dy()-12) - 12
		c := trailColors[n.voice%len(trailColors)]
		c.A = uint8(255 * (1 - age))
		ebitenutil.DrawRect(screen, x, y, 16, 12, c)
	}
}

func (g *game) drawScope(screen *ebiten.Image, rect image.Rectangle) {
	g.scope.Snapshot(g.wave)
	inner := rect.Inset(4)
	w, h := inner.Dx(), inner.Dy()
	if w < 2 || h < 4 {
		return
	}
	midY := float64(inner.Min.Y + h/2)
	ebitenutil.DrawRect(screen, float64(inner.Min.X), midY, float64(w), 1, lampOffColor)
	gain := float64(h/2 - 2)
	prevX := float64(inner.Min.X)
	prevY := midY - float64(g.wave[0])*gain
	for px := 1; px < w; px++ {
		s := g.wave[px*len(g.wave)/w]
		x := float64(inner.Min.X + px)
		y := midY - float64(s)*gain
		ebitenutil.DrawLine(screen, prevX, prevY, x, y, lampOnColor)
		prevX, prevY = x, y
	}
}

// drawLamps shows one lamp per voice and the output level meter.
func (g *game) drawLamps(screen *ebiten.Image, rect image.Rectangle) {
	snap := g.radio.Snapshot()
	x := rect.Min.X + 10
	y := rect.Min.Y + 10
	for _, v := range snap.Voices {
		c := lampOffColor
		if v.Active {
			c = lampOnColor
		}
		ebitenutil.DrawRect(screen, float64(x), float64(y+6), 14, 14, c)
		label := v.Name
		if v.Pitch != "" && v.Active {
			label += " " + v.Pitch
		}
		g.drawText(screen, shortenEnd(label, (rect.Dx()-40)/charW), x+22, y)
		y += lineH + 4
	}

	meterTop := y + 8
	meterH := rect.Max.Y - meterTop - 10
	if meterH < 20 {
		return
	}
	meterX := float64(rect.Min.X + 10)
	meterW := float64(rect.Dx() - 20)
	ebitenutil.DrawRect(screen, meterX, float64(meterTop), meterW, float64(meterH), sunkenBgColor)
	// -60 dB .. 0 dB
	frac := clamp((snap.Level.DB()+60)/60, 0, 1)
	fillH := frac * float64(meterH-4)
	ebitenutil.DrawRect(screen, meterX+2, float64(meterTop+meterH-2)-fillH, meterW-4, fillH, meterColor)
	peakY := float64(meterTop+meterH-2) - clamp(float64(snap.Level.Peak), 0, 1)*float64(meterH-4)
	ebitenutil.DrawRect(screen, meterX+2, peakY, meterW-4, 2, bevelLight)
}

func (g *game) drawStatus(screen *ebiten.Image, rect image.Rectangle) {
	msg := "Status: " + g.status
	if g.statusErr {
		msg = "Status: ERROR - " + g.status
	}
	maxChars := max(8, (rect.Dx()-16)/charW)
	g.drawText(screen, shortenEnd(msg, maxChars), rect.Min.X+8, rect.Min.Y+6)
}

func (g *game) drawVolumeSlider(screen *ebiten.Image, rect image.Rectangle) {
	g.drawPanel(screen, rect)
	g.drawText(screen, fmt.Sprintf("Vol %d%%", int(g.volume*100+0.5)), rect.Min.X+8, rect.Min.Y+8)

	trackX := rect.Min.X + 130
	trackW := rect.Dx() - 146
	trackY := rect.Min.Y + rect.Dy()/2 - 4
	if trackW < 20 {
		return
	}
	ebitenutil.DrawRect(screen, float64(trackX), float64(trackY), float64(trackW), 8, bevelDarker)
	fillW := int(float64(trackW) * g.volume)
	if fillW > 2 {
		ebitenutil.DrawRect(screen, float64(trackX+1), float64(trackY+1), float64(fillW-1), 6, meterColor)
	}
	knobX := min(max(trackX+fillW-5, trackX-5), trackX+trackW-5)
	knob := image.Rect(knobX, trackY-4, knobX+10, trackY+12)
	ebitenutil.DrawRect(screen, float64(knob.Min.X), float64(knob.Min.Y), float64(knob.Dx()), float64(knob.Dy()), panelColor)
	drawBorder(screen, knob)
}

func (g *game) setError(msg string) {
	g.status = msg
	g.statusErr = true
}

func (g *game) setStatus(msg string) {
	g.status = msg
	g.statusErr = false
}

func (g *game) drawPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), panelColor)
	drawBorder(screen, rect)
}

func (g *game) drawSunkenPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), sunkenBgColor)
	drawSunkenBorder(screen, rect)
}

func (g *game) drawDarkPanel(screen *ebiten.Image, rect image.Rectangle) {
	ebitenutil.DrawRect(screen, float64(rect.Min.X), float64(rect.Min.Y), float64(rect.Dx()), float64(rect.Dy()), color.RGBA{0, 0, 0, 255})
	drawSunkenBorder(screen, rect)
}

func (g *game) drawButton(screen *ebiten.Image, rect image.Rectangle, label string) {
	g.drawPanel(screen, rect)
	labelW := len([]rune(label)) * charW
	g.drawText(screen, label, rect.Min.X+(rect.Dx()-labelW)/2, rect.Min.Y+(rect.Dy()-lineH)/2)
}

// drawBorder draws a raised bevel.
func drawBorder(screen *ebiten.Image, rect image.Rectangle) {
	bevel(screen, rect, bevelLight, bevelDarker, borderColor)
}

// drawSunkenBorder draws a sunken bevel.
func drawSunkenBorder(screen *ebiten.Image, rect image.Rectangle) {
	bevel(screen, rect, borderColor, bevelLight, bevelDarker)
}

// bevel paints the top/left edge in hi, the bottom/right edge in lo and an
// inner line in inner.
func bevel(screen *ebiten.Image, rect image.Rectangle, hi, lo, inner color.Color) {
	x, y := float64(rect.Min.X), float64(rect.Min.Y)
	w, h := float64(rect.Dx()), float64(rect.Dy())
	ebitenutil.DrawRect(screen, x, y, w-1, 1, hi)
	ebitenutil.DrawRect(screen, x, y+1, 1, h-2, hi)
	ebitenutil.DrawRect(screen, x, y+h-1, w, 1, lo)
	ebitenutil.DrawRect(screen, x+w-1, y, 1, h, lo)
	ebitenutil.DrawRect(screen, x+1, y+h-2, w-3, 1, inner)
	ebitenutil.DrawRect(screen, x+w-2, y+1, 1, h-3, inner)
}

func (g *game) drawText(screen *ebiten.Image, msg string, x int, y int) {
	if msg == "" {
		return
	}
	img := g.textCache[msg]
	if img == nil {
		img = ebiten.NewImage(max(1, len([]rune(msg))*7), 14)
		ebitenutil.DebugPrintAt(img, msg, 0, 0)
		if len(g.textCache) > 1000 {
			g.textCache = make(map[string]*ebiten.Image, 256)
		}
		g.textCache[msg] = img
	}
	shadow := &ebiten.DrawImageOptions{}
	shadow.GeoM.Scale(textScale, textScale)
	shadow.GeoM.Translate(float64(x+2), float64(y+2))
	shadow.ColorScale.Scale(0, 0, 0, 1)
	screen.DrawImage(img, shadow)
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Scale(textScale, textScale)
	op.GeoM.Translate(float64(x), float64(y))
	screen.DrawImage(img, op)
}

// wrap breaks text into at most maxLines lines of maxChars, word by word.
func wrap(text string, maxChars, maxLines int) []string {
	var out []string
	for _, para := range strings.Split(text, "\n") {
		line := ""
		for _, word := range strings.Fields(para) {
			switch {
			case line == "":
				line = word
			case len(line)+1+len(word) <= maxChars:
				line += " " + word
			default:
				out = append(out, line)
				line = word
			}
		}
		if line != "" {
			out = append(out, line)
		}
	}
	if len(out) > maxLines {
		out = out[:maxLines]
		out[maxLines-1] = shortenEnd(out[maxLines-1]+"...", maxChars)
	}
	return out
}

func shortenEnd(s string, maxChars int) string {
	r := []rune(s)
	if len(r) <= maxChars {
		return s
	}
	if maxChars <= 3 {
		return string(r[:max(0, maxChars)])
	}
	return string(r[:maxChars-3]) + "..."
}

func clamp(v, minV, maxV float64) float64 {
	return math.Max(minV, math.Min(maxV, v))
}

func pointInRect(x, y int, rect image.Rectangle) bool {
	return image.Pt(x, y).In(rect)
}

func main() {
	configPath := flag.String("config", "", "YAML config file (default: user config dir, then built-in)")
	verbose := flag.Bool("verbose", false, "log every trigger")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	var (
		cfg config.Config
		err error
	)
	if *configPath != "" {
		cfg, err = config.Load(*configPath)
	} else {
		cfg, _, err = config.LoadUser()
	}
	if err != nil {
		log.Fatal(err)
	}

	g, err := newGame(cfg, logger)
	if err != nil {
		log.Fatal(err)
	}
	defer g.Close()

	ebiten.SetTPS(cfg.TickRate)
	ebiten.SetWindowSize(windowW, windowH)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetWindowSizeLimits(minWindowW, minWindowH, -1, -1)
	ebiten.SetWindowTitle(cfg.Title)
	if err := ebiten.RunGame(g); err != nil {
		log.Fatal(err)
	}
}
