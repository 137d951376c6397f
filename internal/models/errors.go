package models

import "errors"

var (
	ErrInvalidPrice     = errors.New("invalid price")
	ErrInvalidTimestamp = errors.New("invalid timestamp")
	ErrInvalidCandle    = errors.New("invalid candle (high < low)")
	ErrInvalidVolume    = errors.New("invalid volume")
	ErrUnsortedCandles  = errors.New("candles are not sorted by time")
	ErrInvalidSymbol    = errors.New("invalid symbol")

	ErrInstanceNotFound = errors.New("indicator instance not found")
	ErrLayoutNotFound   = errors.New("layout not found")
	ErrInvalidLayout    = errors.New("invalid layout")
)
