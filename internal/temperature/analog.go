package temperature

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"cianalysis/internal/dataprocessing"
	apperrors "cianalysis/internal/errors"
)

// Column names of the analog log
const (
	ColumnSample      = "Sample"
	ColumnClock       = "Time (s)"
	ColumnTemperature = "AI0 (°C)"
)

// Reading is one row of the analog log
type Reading struct {
	Sample  int
	Clock   string
	Celsius float64
}

// Seconds returns the elapsed time of the reading truncated to whole seconds
func (r Reading) Seconds() (int, error) {
	s, err := ParseClock(r.Clock)
	if err != nil {
		return 0, err
	}
	return int(s), nil
}

// AnalogLog is the temperature controller export, indexed by sample number
type AnalogLog struct {
	Path     string
	readings []Reading
	bySample map[int]int
}

// Len returns the number of readings
func (a *AnalogLog) Len() int {
	return len(a.readings)
}

// LastSample returns the sample number of the final reading
func (a *AnalogLog) LastSample() int {
	return a.readings[len(a.readings)-1].Sample
}

// Lookup returns the reading taken at sample
func (a *AnalogLog) Lookup(sample int) (Reading, bool) {
	i, ok := a.bySample[sample]
	if !ok {
		return Reading{}, false
	}
	return a.readings[i], true
}

// ParseAnalogLog reads an analog log. The first skipRows lines are the
// instrument preamble; the next line is the header. Rows whose sample number
// is not a whole number are ignored.
func ParseAnalogLog(path string, skipRows int) (*AnalogLog, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, apperrors.NewPreconditionError(fmt.Sprintf("analog log %s does not exist", path), err)
		}
		return nil, apperrors.NewStorageError(fmt.Sprintf("failed to open %s", path), err)
	}
	defer f.Close()

	br := bufio.NewReader(f)
	for i := 0; i < skipRows; i++ {
		if _, err := br.ReadString('\n'); err != nil {
			if err == io.EOF {
				return nil, apperrors.NewParsingError(
					fmt.Sprintf("%s ends inside its %d-line preamble", path, skipRows), nil)
			}
			return nil, apperrors.NewStorageError(fmt.Sprintf("failed to read %s", path), err)
		}
	}

	header, rows, err := dataprocessing.ReadRecords(br)
	if err != nil {
		return nil, apperrors.NewParsingError(fmt.Sprintf("failed to read %s header and samples", path), err)
	}

	scol := dataprocessing.HeaderIndex(header, ColumnSample)
	ccol := dataprocessing.HeaderIndex(header, ColumnClock)
	tcol := dataprocessing.HeaderIndex(header, ColumnTemperature)
	if scol < 0 || ccol < 0 || tcol < 0 {
		return nil, apperrors.NewParsingError(
			fmt.Sprintf("%s must have %q, %q and %q columns", path, ColumnSample, ColumnClock, ColumnTemperature), nil).
			WithContext("header", header)
	}

	log := &AnalogLog{Path: path, bySample: make(map[int]int)}
	for _, row := range rows {
		sample, ok := dataprocessing.ParseWhole(dataprocessing.Cell(row, scol))
		if !ok {
			continue
		}
		if _, dup := log.bySample[sample]; !dup {
			log.bySample[sample] = len(log.readings)
		}
		log.readings = append(log.readings, Reading{
			Sample:  sample,
			Clock:   strings.TrimSpace(dataprocessing.Cell(row, ccol)),
			Celsius: dataprocessing.ParseValue(dataprocessing.Cell(row, tcol)),
		})
	}
	if len(log.readings) == 0 {
		return nil, apperrors.NewParsingError(fmt.Sprintf("%s has no samples", path), nil)
	}
	return log, nil
}

// ParseClock converts an elapsed time written as MM:SS.s to seconds
func ParseClock(s string) (float64, error) {
	minutes, seconds, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok {
		return 0, apperrors.NewParsingError(fmt.Sprintf("time %q is not MM:SS.s", s), nil)
	}
	m, err := strconv.Atoi(minutes)
	if err != nil {
		return 0, apperrors.NewParsingError(fmt.Sprintf("time %q has invalid minutes", s), err)
	}
	sec, err := strconv.ParseFloat(seconds, 64)
	if err != nil || math.IsNaN(sec) || math.IsInf(sec, 0) {
		return 0, apperrors.NewParsingError(fmt.Sprintf("time %q has invalid seconds", s), err)
	}
	return float64(m)*60 + sec, nil
}
