package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/spf13/viper"
)

type Config struct {
	LogFormat        string   `mapstructure:"log_format"`
	LogLevel         string   `mapstructure:"log_level"`
	ListenAddr       string   `mapstructure:"listen_addr"`
	ContentType      string   `mapstructure:"content_type"`
	AudioContentType string   `mapstructure:"audio_content_type"`
	FrameRate        int      `mapstructure:"frame_rate"`
	CaptureScreen    bool     `mapstructure:"capture_screen"`
	VideoDevice      string   `mapstructure:"video_device"`
	AudioDevices     []string `mapstructure:"audio_devices"`
	OverlayPosition  string   `mapstructure:"overlay_position"`
	OverlayWidth     string   `mapstructure:"overlay_width"`
	OverlayHeight    string   `mapstructure:"overlay_height"`
}

func Default() *Config {
	return &Config{
		LogFormat:        "text",
		LogLevel:         "info",
		ListenAddr:       "127.0.0.1:8693",
		ContentType:      "video/webm; codecs=vp9",
		AudioContentType: "audio/webm",
		FrameRate:        30,
		CaptureScreen:    true,
		OverlayPosition:  "BottomRight",
		OverlayWidth:     "20%",
		OverlayHeight:    "20%",
	}
}

func Load(cfgFile string) (*Config, error) {
	cfg := Default()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("mixcap")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(configDir())
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	viper.SetEnvPrefix("MIXCAP")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func Save(cfg *Config) error {
	return SaveTo(cfg, "")
}

func SaveTo(cfg *Config, cfgFile string) error {
	viper.Set("log_format", cfg.LogFormat)
	viper.Set("log_level", cfg.LogLevel)
	viper.Set("listen_addr", cfg.ListenAddr)
	viper.Set("content_type", cfg.ContentType)
	viper.Set("audio_content_type", cfg.AudioContentType)
	viper.Set("frame_rate", cfg.FrameRate)
	viper.Set("capture_screen", cfg.CaptureScreen)
	viper.Set("video_device", cfg.VideoDevice)
	viper.Set("audio_devices", cfg.AudioDevices)
	viper.Set("overlay_position", cfg.OverlayPosition)
	viper.Set("overlay_width", cfg.OverlayWidth)
	viper.Set("overlay_height", cfg.OverlayHeight)

	var cfgPath string
	if cfgFile != "" {
		cfgPath = cfgFile
		dir := filepath.Dir(cfgPath)
		if dir != "." {
			if err := os.MkdirAll(dir, 0700); err != nil {
				return err
			}
		}
	} else {
		cfgPath = filepath.Join(configDir(), "mixcap.yaml")
		if err := os.MkdirAll(configDir(), 0700); err != nil {
			return err
		}
	}

	return viper.WriteConfigAs(cfgPath)
}

func configDir() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("ProgramData"), "Mixcap")
	case "darwin":
		return "/Library/Application Support/Mixcap"
	default:
		return "/etc/mixcap"
	}
}
