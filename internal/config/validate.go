package config

import (
	"fmt"
)

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validateTranscode(); err != nil {
		return err
	}
	if err := c.validateImage(); err != nil {
		return err
	}
	if err := c.validateDevice(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateTranscode() error {
	if c.Transcode.Workers < 1 || c.Transcode.Workers > 64 {
		return fmt.Errorf("transcode workers must be between 1 and 64, got %d", c.Transcode.Workers)
	}
	if c.Transcode.HeadroomDB > 0 {
		return fmt.Errorf("transcode headroom_db must be zero or negative, got %g", c.Transcode.HeadroomDB)
	}
	return nil
}

func (c *Config) validateImage() error {
	// Device rows pack two 4-bit pixels per byte.
	if c.Image.CanvasWidth%2 != 0 {
		return fmt.Errorf("image canvas_width must be even, got %d", c.Image.CanvasWidth)
	}
	if c.Image.CropMargin*2 >= c.Image.CanvasWidth || c.Image.CropMargin*2 >= c.Image.CanvasHeight {
		return fmt.Errorf("image crop_margin %d leaves no canvas", c.Image.CropMargin)
	}
	return nil
}

func (c *Config) validateDevice() error {
	switch c.Device.CipherScheme {
	case "v2", "v3":
		return nil
	default:
		return fmt.Errorf("device cipher_scheme must be %q or %q, got %q", "v2", "v3", c.Device.CipherScheme)
	}
}
