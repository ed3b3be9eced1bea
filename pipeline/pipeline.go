/*
DESCRIPTION
  pipeline.go runs the single-threaded capture -> decode -> color -> warp
  -> output loop, reporting stats and classifying errors into the ones
  that end the pipeline (device lost) and the ones that drop a single
  frame and continue.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/

// Package pipeline drives the video transform loop: capture, decode,
// color-correct, warp and output, one frame at a time.
package pipeline

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ausocean/utils/logging"

	"github.com/loopvid/keystone/codec/decode"
	"github.com/loopvid/keystone/codec/encode"
	"github.com/loopvid/keystone/codec/preview"
	"github.com/loopvid/keystone/color"
	"github.com/loopvid/keystone/device/capture"
	"github.com/loopvid/keystone/device/output"
	"github.com/loopvid/keystone/pool"
	"github.com/loopvid/keystone/state"
	"github.com/loopvid/keystone/warp"
)

// RGBSnapshot is a standalone copy of the most recently processed
// working frame's RGB24 pixels, exposed so the control plane's
// auto-white-balance endpoint can sample a frame without racing the
// pipeline's own pool-buffer reuse.
type RGBSnapshot struct {
	Data          []byte
	Width, Height uint32
}

// AppliedDevice is the actually-negotiated capture/output format,
// distinct from the Config's requested values.
type AppliedDevice struct {
	Width, Height uint32
	FPS           uint32
	InputFormat   pool.PixFmt
}

// Pipeline owns the capture source, output sink and processing stages,
// and drives them from a single goroutine started by Run.
type Pipeline struct {
	log    logging.Logger
	shared *state.SharedState
	pool   *pool.Pool

	src *capture.Source
	snk *output.Sink

	dec   *decode.Decoder
	color *color.Stage
	warp  *warp.Stage
	enc   *encode.Encoder

	stats   state.Stats
	statsMu sync.Mutex

	lastRGB atomic.Pointer[RGBSnapshot]

	stop chan struct{}
	wg   sync.WaitGroup
	// err carries a fatal, pipeline-ending error (device loss) to Run's
	// caller; recoverable per-frame errors are logged and counted in
	// Stats instead.
	err chan error
}

// New wires a Pipeline from its already-open capture source, output
// sink and shared state.
func New(src *capture.Source, snk *output.Sink, p *pool.Pool, shared *state.SharedState, log logging.Logger) *Pipeline {
	return &Pipeline{
		log:    log,
		shared: shared,
		pool:   p,
		src:    src,
		snk:    snk,
		dec:    decode.New(p),
		color:  color.New(),
		warp:   warp.New(),
		enc:    encode.New(p),
		stop:   make(chan struct{}),
		err:    make(chan error, 1),
	}
}

// Run starts the capture device and the processing loop, returning
// immediately. The loop exits when Stop is called, which waits for it to
// finish, or on a fatal error reported through Err.
func (p *Pipeline) Run(ctx context.Context) error {
	if err := p.src.Start(ctx); err != nil {
		return err
	}
	p.stats.StartTime = time.Now()
	p.wg.Add(1)
	go p.loop(ctx)
	return nil
}

// Err returns a channel that receives exactly one fatal error if the
// loop exits abnormally, then is never written to again.
func (p *Pipeline) Err() <-chan error { return p.err }

// Stop signals the loop to exit and waits for it to finish, then stops
// the capture source and output sink.
func (p *Pipeline) Stop() {
	close(p.stop)
	p.wg.Wait()
	p.src.Stop()
	p.snk.Close()
}

func (p *Pipeline) loop(ctx context.Context) {
	defer p.wg.Done()
	for {
		select {
		case <-p.stop:
			return
		case <-ctx.Done():
			return
		default:
		}

		if err := p.step(ctx); err != nil {
			if _, ok := err.(*capture.DeviceLost); ok {
				select {
				case p.err <- err:
				default:
				}
				return
			}
			// Recoverable: log and continue to the next frame.
			p.log.Warning(pkg+"frame dropped", "error", err.Error())
			p.bump(&p.stats.FramesDropped)
		}
	}
}

// step processes exactly one frame through the full pipeline, timing
// each stage into Stats.AvgStageNanos via an exponential moving average,
// the same low-overhead instrumentation shape as a running mean.
func (p *Pipeline) step(ctx context.Context) error {
	snap := p.shared.Load()

	t0 := time.Now()
	raw, err := p.src.Next(ctx)
	if err != nil {
		return err
	}
	p.timeStage(0, t0)
	p.bump(&p.stats.FramesCaptured)
	defer p.pool.Release(raw.Buf)

	t1 := time.Now()
	rgb, err := p.dec.Decode(raw, snap.Color.Space, snap.Color.Range)
	if err != nil {
		p.bump(&p.stats.DecodeErrors)
		return err
	}
	p.timeStage(1, t1)
	p.bump(&p.stats.FramesDecoded)
	defer p.pool.Release(rgb.Buf)

	if rawJPEG, err := preview.Encode(rgb, snap.Preview.Active); err != nil {
		p.log.Warning(pkg+"raw preview encode failed", "error", err.Error())
	} else if rawJPEG != nil {
		p.shared.UpdatePreview(func(pr *state.PreviewState) {
			pr.RawJPEG = rawJPEG
			pr.RawTS = time.Now().UnixNano()
		})
	}

	t2 := time.Now()
	if err := p.color.Apply(rgb, snap.Color); err != nil {
		return err
	}
	p.timeStage(2, t2)
	p.bump(&p.stats.FramesColored)

	t3 := time.Now()
	if err := p.warp.Apply(rgb, snap.Calibration); err != nil {
		return err
	}
	p.timeStage(3, t3)
	p.bump(&p.stats.FramesWarped)

	rgbCopy := make([]byte, len(rgb.Bytes()))
	copy(rgbCopy, rgb.Bytes())
	p.lastRGB.Store(&RGBSnapshot{Data: rgbCopy, Width: rgb.Width, Height: rgb.Height})

	jpegBytes, err := preview.Encode(rgb, snap.Preview.Active)
	if err != nil {
		p.log.Warning(pkg+"preview encode failed", "error", err.Error())
	} else if jpegBytes != nil {
		p.shared.UpdatePreview(func(pr *state.PreviewState) {
			pr.CorrJPEG = jpegBytes
			pr.CorrTS = time.Now().UnixNano()
		})
	}

	t4 := time.Now()
	yuyv, err := p.enc.Encode(rgb)
	if err != nil {
		p.bump(&p.stats.OutputErrors)
		return err
	}
	defer p.pool.Release(yuyv.Buf)
	if err := p.snk.Write(yuyv); err != nil {
		p.bump(&p.stats.OutputErrors)
		return err
	}
	p.timeStage(4, t4)
	p.bump(&p.stats.FramesOutput)

	p.statsMu.Lock()
	p.stats.LastFrameTime = time.Now()
	p.statsMu.Unlock()
	return nil
}

func (p *Pipeline) timeStage(i int, start time.Time) {
	d := time.Since(start).Nanoseconds()
	p.statsMu.Lock()
	prev := p.stats.AvgStageNanos[i]
	if prev == 0 {
		p.stats.AvgStageNanos[i] = d
	} else {
		// Exponential moving average, alpha = 1/8.
		p.stats.AvgStageNanos[i] = prev + (d-prev)/8
	}
	p.statsMu.Unlock()
}

func (p *Pipeline) bump(counter *uint64) {
	p.statsMu.Lock()
	*counter++
	p.statsMu.Unlock()
}

// Source returns the pipeline's capture device, so the control plane can
// read and write camera controls without the pipeline itself needing to
// know anything about the HTTP API.
func (p *Pipeline) Source() *capture.Source { return p.src }

// LastRGB returns the most recently processed frame's RGB24 pixels, or
// ok=false if no frame has been processed yet.
func (p *Pipeline) LastRGB() (RGBSnapshot, bool) {
	s := p.lastRGB.Load()
	if s == nil {
		return RGBSnapshot{}, false
	}
	return *s, true
}

// Stats returns a copy of the current rolling stats.
func (p *Pipeline) Stats() state.Stats {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	return p.stats
}

// ResetStats zeroes the counters, keeping StartTime.
func (p *Pipeline) ResetStats() {
	p.statsMu.Lock()
	defer p.statsMu.Unlock()
	start := p.stats.StartTime
	p.stats = state.Stats{StartTime: start}
}

const pkg = "pipeline: "
