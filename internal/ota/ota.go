// Package ota streams a firmware image to the OTA topic in fixed-size
// chunks.
package ota

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"github.com/farouk15160/led-mqtt-control/internal/mqtt"
)

// DefaultChunkSize matches the receiver's OTA buffer.
const DefaultChunkSize = 1024

// ErrNotRegular is returned by Open for directories and devices.
var ErrNotRegular = errors.New("firmware path is not a regular file")

// Stats summarises an upload.
type Stats struct {
	Chunks int
	Bytes  int64
}

// Uploader publishes chunks in order, waiting for each publish to complete
// before reading the next one.
type Uploader struct {
	Pub       mqtt.WaitPublisher
	Topic     string
	ChunkSize int
	QoS       byte
	Logger    zerolog.Logger
}

// Open opens the firmware file. It fails on a missing or non-regular file so
// callers can check the image before connecting to the broker.
func Open(path string) (*os.File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open firmware: %w", err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("stat firmware: %w", err)
	}
	if !info.Mode().IsRegular() {
		f.Close()
		return nil, fmt.Errorf("%s: %w", path, ErrNotRegular)
	}
	return f, nil
}

// Upload reads r to EOF and publishes it. On error the returned Stats cover
// the chunks already sent.
func (u *Uploader) Upload(ctx context.Context, r io.Reader) (Stats, error) {
	size := u.ChunkSize
	if size <= 0 {
		size = DefaultChunkSize
	}

	var stats Stats
	buf := make([]byte, size)
	for {
		n, err := io.ReadFull(r, buf)
		if n > 0 {
			// paho keeps a reference to the payload until the publish completes.
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if perr := u.Pub.PublishWait(ctx, u.Topic, u.QoS, false, chunk); perr != nil {
				u.Logger.Error().Err(perr).Int("chunk", stats.Chunks).Str("topic", u.Topic).Msg("Failed to send chunk")
				return stats, fmt.Errorf("chunk %d: %w", stats.Chunks, perr)
			}
			stats.Chunks++
			stats.Bytes += int64(n)
			u.Logger.Debug().Int("chunk", stats.Chunks).Int("size", n).Msg("Sent chunk")
		}
		switch {
		case err == nil:
			continue
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			u.Logger.Info().Int("chunks", stats.Chunks).Int64("bytes", stats.Bytes).Str("topic", u.Topic).Msg("Firmware upload complete")
			return stats, nil
		default:
			return stats, fmt.Errorf("read firmware: %w", err)
		}
	}
}
