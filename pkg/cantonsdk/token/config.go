package token

import "errors"

// Config contains the configuration required to initialize the token client.
type Config struct {
	// Instrument is the token instrument; Admin is the decentralized party.
	Instrument InstrumentID
}

func (c *Config) validate() error {
	if c == nil {
		return errors.New("nil config")
	}
	if c.Instrument.Admin == "" {
		return errors.New("instrument admin is required")
	}
	if c.Instrument.ID == "" {
		return errors.New("instrument id is required")
	}
	return nil
}
