// Package config provides configuration structures and utilities for Ulcare.
// It defines the model location, preprocessing parameters, batch settings
// and report preferences, and loads the optional .ulcare YAML file.
package config
