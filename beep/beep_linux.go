//go:build linux

package beep

import (
	"github.com/jfreymuth/pulse"
	"github.com/jfreymuth/pulse/proto"
)

func playSamples(samples []int16) {
	if len(samples) == 0 {
		return
	}
	// Interleave to stereo and pad with a tail so PulseAudio does not
	// cut off the decay while its buffer fills.
	tail := int(sampleRate * 0.15)
	stereo := make([]int16, 0, (len(samples)+tail)*2)
	for _, s := range samples {
		stereo = append(stereo, s, s)
	}
	stereo = append(stereo, make([]int16, tail*2)...)

	c, err := pulse.NewClient()
	if err != nil {
		return
	}
	defer c.Close()

	pos := 0
	reader := pulse.Int16Reader(func(buf []int16) (int, error) {
		if pos >= len(stereo) {
			return 0, pulse.EndOfData
		}
		n := copy(buf, stereo[pos:])
		pos += n
		return n, nil
	})
	stream, err := c.NewPlayback(reader,
		pulse.PlaybackStereo,
		pulse.PlaybackSampleRate(sampleRate),
		pulse.PlaybackLatency(0.1),
		pulse.PlaybackRawOption(func(p *proto.CreatePlaybackStream) {
			p.ChannelVolumes = proto.ChannelVolumes{uint32(proto.VolumeNorm), uint32(proto.VolumeNorm)}
		}),
	)
	if err != nil {
		return
	}
	stream.Start()
	stream.Drain()
	stream.Stop()
	stream.Close()
}
