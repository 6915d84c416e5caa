package common

import (
	"math"
	"strconv"

	"github.com/klauspost/compress/zstd"
)

var suffixes = [6]string{"B", "KB", "MB", "GB", "TB", "PB"}

// HumanFileSize converts a byte count into a human readable string such as
// "91.55 KB".
func HumanFileSize(size int64) string {
	if size <= 0 {
		return "0 B"
	}

	base := math.Log(float64(size)) / math.Log(1024)
	suffixBase := int(math.Floor(base))
	if suffixBase > len(suffixes)-1 {
		suffixBase = len(suffixes) - 1
	}

	value := round(float64(size)/math.Pow(1024, float64(suffixBase)), .5, 2)
	return strconv.FormatFloat(value, 'f', -1, 64) + " " + suffixes[suffixBase]
}

func round(val float64, roundOn float64, places int) float64 {
	pow := math.Pow(10, float64(places))
	digit := pow * val
	_, div := math.Modf(digit)
	if div >= roundOn {
		return math.Ceil(digit) / pow
	}
	return math.Floor(digit) / pow
}

// Semaphore bounds the number of goroutines doing work at once.
type Semaphore interface {
	Acquire()
	Release()
}

type semaphore struct {
	semC chan struct{}
}

func NewSemaphore(maxConcurrency int) Semaphore {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &semaphore{
		semC: make(chan struct{}, maxConcurrency),
	}
}

func (s *semaphore) Acquire() {
	s.semC <- struct{}{}
}

func (s *semaphore) Release() {
	<-s.semC
}

// ZstdCompress returns data as a single zstd frame.
func ZstdCompress(data []byte) ([]byte, error) {
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return nil, err
	}
	defer enc.Close()

	return enc.EncodeAll(data, make([]byte, 0, len(data)/2)), nil
}

// ZstdDecompress reverses ZstdCompress. Input that is not a zstd stream is
// an error.
func ZstdDecompress(data []byte) ([]byte, error) {
	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	return dec.DecodeAll(data, nil)
}
