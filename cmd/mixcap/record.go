package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mixcap/mixcap/internal/capture"
	"github.com/mixcap/mixcap/internal/config"
	"github.com/mixcap/mixcap/internal/device"
	"github.com/mixcap/mixcap/internal/server"
)

var (
	recordDuration time.Duration
	recordOutDir   string
	withTestCard   bool
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List available input devices",
	Run: func(cmd *cobra.Command, args []string) {
		loadConfig()
		svc := capture.NewService(newDeviceManager())
		out, err := yaml.Marshal(svc.Devices())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to render device list: %v\n", err)
			os.Exit(1)
		}
		fmt.Print(string(out))
	},
}

var recordCmd = &cobra.Command{
	Use:   "record",
	Short: "Record a capture until interrupted",
	Run: func(cmd *cobra.Command, args []string) {
		runRecord(loadConfig())
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the websocket control server",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		svc := capture.NewService(newDeviceManager())
		srv := server.New(svc)

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		if err := srv.ListenAndServe(ctx, cfg.ListenAddr); err != nil {
			fmt.Fprintf(os.Stderr, "Server failed: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	recordCmd.Flags().DurationVar(&recordDuration, "duration", 0, "stop automatically after this duration (0 = wait for Ctrl+C)")
	recordCmd.Flags().StringVar(&recordOutDir, "out", ".", "directory to write recorded payloads into")
	recordCmd.Flags().BoolVar(&withTestCard, "test-card", false, "register synthetic test sources")
	devicesCmd.Flags().BoolVar(&withTestCard, "test-card", false, "register synthetic test sources")
	serveCmd.Flags().BoolVar(&withTestCard, "test-card", false, "register synthetic test sources")
}

func newDeviceManager() *device.Manager {
	mgr := device.NewManager()
	device.RegisterScreens(mgr)
	if withTestCard {
		mgr.Register(device.NewTestCard("testcard", "Test Card"))
		mgr.Register(device.NewTone("tone", "Test Tone", 440))
	}
	return mgr
}

func runRecord(cfg *config.Config) {
	svc := capture.NewService(newDeviceManager())

	opts := capture.Options{
		ContentType:      cfg.ContentType,
		AudioContentType: cfg.AudioContentType,
		CaptureScreen:    cfg.CaptureScreen,
		FrameRate:        cfg.FrameRate,
		OverlayPosition:  capture.OverlayAnchor(cfg.OverlayPosition),
		OverlaySize: &capture.OverlaySize{
			Width:  capture.Dimension{CSSValue: cfg.OverlayWidth},
			Height: capture.Dimension{CSSValue: cfg.OverlayHeight},
		},
	}
	if cfg.VideoDevice != "" {
		opts.VideoDevice = &capture.DeviceSelector{DeviceID: cfg.VideoDevice}
	}
	for _, id := range cfg.AudioDevices {
		opts.AudioDevices = append(opts.AudioDevices, capture.DeviceSelector{DeviceID: id})
	}

	results := make(chan capture.Result, 1)
	id := svc.StartCapture(opts, capture.Hooks{
		OnStopped: func(captureID string) {
			fmt.Printf("Capture %s stopped, flushing...\n", captureID)
		},
		OnResult: func(res capture.Result) {
			results <- res
		},
	})
	fmt.Printf("Recording capture %s, press Ctrl+C to stop\n", id)

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	if recordDuration > 0 {
		select {
		case <-sigs:
		case <-time.After(recordDuration):
		}
	} else {
		<-sigs
	}

	svc.StopCapture(id)

	select {
	case res := <-results:
		writeResult(res)
	case <-time.After(10 * time.Second):
		fmt.Fprintln(os.Stderr, "Timed out waiting for the capture result")
		os.Exit(1)
	}
}

// writeResult dumps each channel payload to a file. This is plain CLI
// output handling; the pipeline itself keeps recordings in memory only.
func writeResult(res capture.Result) {
	write := func(name string, data *capture.ChannelData) {
		if data == nil {
			return
		}
		path := filepath.Join(recordOutDir, fmt.Sprintf("%s-%s%s", res.CaptureID, name, extFor(data.ContentType)))
		if err := os.WriteFile(path, data.Bytes, 0644); err != nil {
			fmt.Fprintf(os.Stderr, "Failed to write %s: %v\n", path, err)
			return
		}
		fmt.Printf("%s: %d bytes -> %s\n", name, len(data.Bytes), path)
	}
	write("screen", res.CaptureData)
	write("camera", res.CameraData)
	write("audio", res.AudioData)
	write("system-audio", res.SystemAudioData)
	write("combined", res.CombinedData)
}

func extFor(contentType string) string {
	switch {
	case contentType == "":
		return ".bin"
	case contentType[0] == 'a':
		return ".wav"
	default:
		return ".mjpeg"
	}
}
