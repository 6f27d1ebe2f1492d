package channel

import (
	"time"

	"github.com/pion/rtp"
)

// PackRTP frames a demodulated payload as an RTP packet addressed to
// this channel's SSRC, advancing its sequence counter and byte total.
// Demodulation itself (turning RF samples into payload bytes) is out of
// scope; this is the transport framing step every channel owns
// regardless of which demodulator produced the payload, grounded on
// github.com/pion/rtp, the same library the teacher's audio.go uses to
// parse RTP on the receiving side.
func (c *Channel) PackRTP(payload []byte, timestamp uint32) ([]byte, error) {
	pkt := &rtp.Packet{
		Header: rtp.Header{
			Version:        2,
			PayloadType:    c.Output.PayloadType,
			SequenceNumber: uint16(c.NextSeq()),
			Timestamp:      timestamp,
			SSRC:           c.SSRC,
		},
		Payload: payload,
	}
	data, err := pkt.Marshal()
	if err != nil {
		return nil, err
	}
	c.AddBytes(len(payload))
	return data, nil
}

// rtpTimestamp converts a time.Time to an RTP-clock timestamp at the
// channel's output sample rate.
func (c *Channel) rtpTimestamp(t time.Time) uint32 {
	if c.Output.SampleRate <= 0 {
		return 0
	}
	return uint32(t.UnixNano() / int64(time.Second) * int64(c.Output.SampleRate))
}
