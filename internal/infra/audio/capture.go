package audio

import "time"

type CaptureOptions struct {
	MaxDuration time.Duration
	// SilenceTimeout ends a take after speech is followed by this much quiet. Zero disables it.
	SilenceTimeout   time.Duration
	SilenceThreshold int16
	OnLevel          func(level float64)
}

func (o CaptureOptions) withDefaults() CaptureOptions {
	if o.MaxDuration <= 0 {
		o.MaxDuration = 5 * time.Minute
	}
	if o.SilenceThreshold <= 0 {
		o.SilenceThreshold = 500
	}
	return o
}
