// Package movie records a race as sparse position samples and plays it back.
//
// A movie is a gzip stream holding a magic line, a JSON header line and two
// sample streams. The XY stream carries one sample per car every sampleTicks
// ticks: a full big-endian int16 pair on every fullEvery-th sample and int8
// deltas in between. The heading stream carries one int8 per car every
// sampleTicks ticks, in units of a 256th of a turn.
package movie

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
)

const (
	magic = "RACESIM-MOVIE 1\n"

	sampleTicks = 9
	fullEvery   = 10
	angleScale  = 2 * math.Pi / 256
)

// ErrFormat is returned for input that is not a movie.
var ErrFormat = errors.New("not a movie file")

// Header describes the recorded session.
type Header struct {
	Track      string   `json:"track"`
	Drivers    []string `json:"drivers"`
	StartOrder []int    `json:"startOrder"`
	Stage      string   `json:"stage"`
	DeltaTime  float64  `json:"deltaTime"`
}

// Cars is the number of cars in the movie.
func (h Header) Cars() int { return len(h.Drivers) }

func encode(w io.Writer, h Header, xy, ang []byte) error {
	zw := gzip.NewWriter(w)
	hdr, err := json.Marshal(h)
	if err != nil {
		return err
	}
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(len(xy)))
	for _, b := range [][]byte{[]byte(magic), hdr, {'\n'}, size[:], xy, ang} {
		if _, err := zw.Write(b); err != nil {
			return err
		}
	}
	return zw.Close()
}

func decode(r io.Reader) (Header, []byte, []byte, error) {
	var h Header
	zr, err := gzip.NewReader(r)
	if err != nil {
		return h, nil, nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	defer zr.Close()
	br := bufio.NewReader(zr)

	line, err := br.ReadString('\n')
	if err != nil || line != magic {
		return h, nil, nil, ErrFormat
	}
	line, err = br.ReadString('\n')
	if err != nil {
		return h, nil, nil, fmt.Errorf("%w: header: %v", ErrFormat, err)
	}
	if err := json.Unmarshal([]byte(line), &h); err != nil {
		return h, nil, nil, fmt.Errorf("%w: header: %v", ErrFormat, err)
	}
	if h.Cars() == 0 {
		return h, nil, nil, fmt.Errorf("%w: no cars", ErrFormat)
	}

	var size [4]byte
	if _, err := io.ReadFull(br, size[:]); err != nil {
		return h, nil, nil, fmt.Errorf("%w: %v", ErrFormat, err)
	}
	xy := make([]byte, binary.BigEndian.Uint32(size[:]))
	if _, err := io.ReadFull(br, xy); err != nil {
		return h, nil, nil, fmt.Errorf("%w: xy stream: %v", ErrFormat, err)
	}
	var ang bytes.Buffer
	if _, err := ang.ReadFrom(br); err != nil {
		return h, nil, nil, fmt.Errorf("%w: heading stream: %v", ErrFormat, err)
	}
	return h, xy, ang.Bytes(), nil
}

// Open reads a movie file.
func Open(path string) (*Player, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Load(f)
}

func wrapAngle(a float64) float64 {
	a = math.Mod(a, 2*math.Pi)
	if a > math.Pi {
		a -= 2 * math.Pi
	} else if a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
