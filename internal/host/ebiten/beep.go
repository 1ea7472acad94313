package ebiten

import (
	"bytes"
	"fmt"
	"math"

	"github.com/hajimehoshi/ebiten/v2/audio"
)

const (
	sampleRate = 44100
	beepHz     = 440

	volumeStep = 0.2
	volumeMax  = 1.0
	volumeMin  = 0.0
)

// beeper wraps a continuously-looping sine tone, adapted from the
// teacher's internal/beep package. The teacher's Beep.Play rendered a
// full one-second clip and played it once per call; that package was
// never actually wired into the teacher's renderer or main, so there
// was no sustained-tone requirement to satisfy. Wired into
// hostio.HostIO's level-triggered Beep(on bool) contract here (spec.md
// §6: "on is true exactly while the timer is non-zero", which can
// outlast one second of a ROM holding sound_timer non-zero across
// several Fx18 reloads), a single waveform cycle wrapped in
// audio.NewInfiniteLoop is the correct primitive: Play()/Pause() start
// and stop the loop in place rather than needing to be retriggered.
type beeper struct {
	p  *audio.Player
	on bool
}

func newBeeper() (*beeper, error) {
	cycleSamples := sampleRate / beepHz
	buf := make([]byte, cycleSamples*2)
	for i := 0; i < cycleSamples; i++ {
		a := math.Sin(2.0 * math.Pi * float64(i) / float64(cycleSamples))
		s := int16(a * math.MaxInt16)
		buf[2*i] = byte(s)
		buf[2*i+1] = byte(s >> 8)
	}

	audioCtx := audio.NewContext(sampleRate)
	loop := audio.NewInfiniteLoop(bytes.NewReader(buf), int64(len(buf)))
	player, err := audioCtx.NewPlayer(loop)
	if err != nil {
		return nil, fmt.Errorf("couldn't create an audio player: %w", err)
	}

	return &beeper{p: player}, nil
}

// setOn starts the loop on a false->true edge and pauses it on the
// reverse edge, in place (no rewind, since the waveform is a
// seamless single-cycle loop); it is a no-op on a repeated call with
// the same value, so HostIO.Beep can be called every frame without
// retriggering the tone mid-playback.
func (b *beeper) setOn(on bool) {
	if on == b.on {
		return
	}
	b.on = on

	if on {
		b.p.Play()
		return
	}
	b.p.Pause()
}

func (b *beeper) volumeUp() {
	volume := b.p.Volume()
	volume = min(volume+volumeStep, volumeMax)
	b.p.SetVolume(volume)
}

func (b *beeper) volumeDown() {
	volume := b.p.Volume()
	volume = max(volume-volumeStep, volumeMin)
	b.p.SetVolume(volume)
}
