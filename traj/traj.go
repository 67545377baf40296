/*
 * traj.go, part of gochemopt.
 *
 *
 * Copyright 2024 Raul Mera <rmera{at}chemDOThelsinkiDOTfi>
 *
 * This program is free software; you can redistribute it and/or modify
 * it under the terms of the GNU Lesser General Public License as
 * published by the Free Software Foundation; either version 2.1 of the
 * License, or (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
 * GNU General Public License for more details.
 *
 * You should have received a copy of the GNU Lesser General
 * Public License along with this program.  If not, see
 * <http://www.gnu.org/licenses/>.
 *
 *
 * Gochem is developed at the laboratory for instruction in Swedish, Department of Chemistry,
 * University of Helsinki, Finland.
 *
 *
 */
/***Dedicated to the long life of the Ven. Khenpo Phuntzok Tenzin Rinpoche***/

package traj

import (
	"bufio"
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	v3 "github.com/rmera/gochemopt/v3"
)

//DefaultPrecision is the number of decimal places kept for each coordinate.
const DefaultPrecision = 4

//Writer writes a compressed, multi-frame trajectory. Files with names ending in 'z'
//are compressed with gzip, all others with zstd.
type Writer struct {
	f         *os.File
	h         io.WriteCloser
	natoms    int
	filename  string
	writeable bool
	prec      int
	frames    int
}

//NewWriter creates the file name for a trajectory of natoms atoms. The header, if given,
//is written at the beginning of the file. The key "prec" sets the number of decimal places.
func NewWriter(name string, natoms int, header map[string]string) (*Writer, error) {
	S := &Writer{natoms: natoms, filename: name, prec: DefaultPrecision}
	if header == nil {
		header = make(map[string]string)
	}
	if p, ok := header["prec"]; ok {
		prec, err := strconv.Atoi(p)
		if err == nil && prec > 0 {
			S.prec = prec
		} else {
			log.Printf("Invalid precision for trajectory %s. Will use the default", S.filename)
		}
	}
	header["prec"] = strconv.Itoa(S.prec)
	var err error
	S.f, err = os.Create(name)
	if err != nil {
		return nil, Error{UnableToOpen + ": " + err.Error(), name, []string{"os.Create", "NewWriter"}, true}
	}
	if strings.HasSuffix(strings.ToLower(name), "z") {
		S.h, err = gzip.NewWriterLevel(S.f, gzip.BestCompression)
	} else {
		S.h, err = zstd.NewWriter(S.f, zstd.WithEncoderLevel(zstd.SpeedBestCompression))
	}
	if err != nil {
		S.f.Close()
		return nil, Error{"Can't create compressor " + err.Error(), name, []string{"NewWriter"}, true}
	}
	keys := make([]string, 0, len(header))
	for k := range header {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if strings.ContainsAny(k, "=\n") || strings.Contains(header[k], "\n") {
			S.h.Close()
			S.f.Close()
			return nil, Error{fmt.Sprintf("Invalid header entry %q", k), name, []string{"NewWriter"}, true}
		}
		fmt.Fprintf(S.h, "%s=%s\n", k, header[k])
	}
	fmt.Fprintf(S.h, "** %d\n", S.natoms)
	S.writeable = true
	return S, nil
}

//Close flushes and closes the trajectory. It can't be written after this.
func (S *Writer) Close() error {
	if S == nil || !S.writeable {
		return nil
	}
	S.writeable = false
	err := S.h.Close()
	if err2 := S.f.Close(); err == nil {
		err = err2
	}
	return err
}

//Len returns the number of atoms in each frame.
func (S *Writer) Len() int {
	return S.natoms
}

//Frames returns the number of frames written so far.
func (S *Writer) Frames() int {
	return S.frames
}

//WNext writes a frame with the coordinates coord and, optionally, 9 box values.
func (S *Writer) WNext(coord *v3.Matrix, box ...[]float64) error {
	if !S.writeable {
		return Error{TrajUnIniWrite, S.filename, []string{"WNext"}, true}
	}
	if coord == nil {
		return Error{NilCoordinates, S.filename, []string{"WNext"}, true}
	}
	v := coord.NVecs()
	if v != S.natoms {
		return Error{fmt.Sprintf("%d coordinates given, but %d expected", v, S.natoms), S.filename, []string{"WNext"}, true}
	}
	var floats [3]float64
	for i := 0; i < v; i++ {
		floats[0] = coord.At(i, 0)
		floats[1] = coord.At(i, 1)
		floats[2] = coord.At(i, 2)
		if _, err := S.h.Write([]byte(coordsEncode(floats, S.prec))); err != nil {
			return Error{err.Error(), S.filename, []string{"Write", "WNext"}, true}
		}
	}
	var err error
	if len(box) > 0 && len(box[0]) >= 9 {
		b := box[0]
		_, err = fmt.Fprintf(S.h, "* %4.2f %4.2f %4.2f %4.2f %4.2f %4.2f %4.2f %4.2f %4.2f\n", b[0], b[1], b[2], b[3], b[4], b[5], b[6], b[7], b[8])
	} else {
		_, err = S.h.Write([]byte("*\n"))
	}
	if err != nil {
		return Error{err.Error(), S.filename, []string{"Write", "WNext"}, true}
	}
	S.frames++
	return nil
}

func coordsEncode(f [3]float64, prec int) string {
	p := math.Pow(10.0, float64(prec))
	var temp [3]int
	for i, v := range f {
		temp[i] = int(math.RoundToEven(v * p))
	}
	return fmt.Sprintf("%d %d %d\n", temp[0], temp[1], temp[2])
}

func coordsDecode(str string, temp *[3]float64, prec int) error {
	p := math.Pow(10.0, float64(prec))
	s := strings.Fields(str)
	if len(s) != 3 {
		return fmt.Errorf("Ill formated coordinates line: %d fields in %q", len(s), str)
	}
	for i, v := range s {
		f, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("Can't parse coordinate %d (%s). Error: %s", i, v, err.Error())
		}
		temp[i] = float64(f) / p
	}
	return nil
}

//Reader reads trajectories written by Writer.
type Reader struct {
	f        *os.File
	dec      io.ReadCloser
	h        *bufio.Reader
	natoms   int
	filename string
	prec     int
	readable bool
}

//zstd's Decoder Close doesn't return an error, so it is not an io.ReadCloser.
type zstdrc struct {
	*zstd.Decoder
}

func (z zstdrc) Close() error {
	z.Decoder.Close()
	return nil
}

//NewReader opens a trajectory for reading, and returns the reader
//and a map with the header.
func NewReader(name string) (*Reader, map[string]string, error) {
	S := &Reader{natoms: -1, filename: name, prec: DefaultPrecision}
	var err error
	S.f, err = os.Open(name)
	if err != nil {
		return nil, nil, Error{UnableToOpen + ": " + err.Error(), name, []string{"os.Open", "NewReader"}, true}
	}
	if strings.HasSuffix(strings.ToLower(name), "z") {
		S.dec, err = gzip.NewReader(bufio.NewReader(S.f))
	} else {
		var d *zstd.Decoder
		d, err = zstd.NewReader(bufio.NewReader(S.f))
		if err == nil {
			S.dec = zstdrc{d}
		}
	}
	if err != nil {
		S.f.Close()
		return nil, nil, Error{"Can't read header " + err.Error(), name, []string{"NewReader"}, true}
	}
	S.readable = true
	S.h = bufio.NewReader(S.dec)
	m := make(map[string]string)
	for {
		str, err := S.h.ReadString('\n')
		if err != nil {
			S.Close()
			return nil, nil, Error{"Can't read header " + err.Error(), name, []string{"NewReader"}, true}
		}
		str = strings.TrimSuffix(str, "\n")
		if strings.HasPrefix(str, "**") {
			nat := strings.Fields(str)
			if len(nat) < 2 {
				S.Close()
				return nil, nil, Error{fmt.Sprintf("Can't read atom number from %q", str), name, []string{"NewReader"}, true}
			}
			S.natoms, err = strconv.Atoi(nat[1])
			if err != nil {
				S.Close()
				return nil, nil, Error{fmt.Sprintf("Can't read atom number from %q: %s", nat[1], err.Error()), name, []string{"NewReader"}, true}
			}
			break
		}
		kv := strings.SplitN(str, "=", 2)
		if len(kv) != 2 {
			S.Close()
			return nil, nil, Error{fmt.Sprintf("Malformed header line %q", str), name, []string{"NewReader"}, true}
		}
		m[kv[0]] = kv[1]
	}
	if p, ok := m["prec"]; ok {
		prec, err := strconv.Atoi(p)
		if err == nil && prec > 0 {
			S.prec = prec
		} else {
			log.Printf("Invalid precision for trajectory %s. Will assume the default", S.filename)
		}
	}
	return S, m, nil
}

//Readable returns true if it is possible to call Next on the reader.
func (S *Reader) Readable() bool {
	return S.readable
}

//Len returns the number of atoms in each frame of the trajectory.
func (S *Reader) Len() int {
	return S.natoms
}

//Next puts in c the coordinates for the next frame of the trajectory and, if given
//and present in the file, the box information in box. If c is nil, the frame is
//read and discarded. At the end of the trajectory, it returns an error for which
//IsLastFrame returns true.
func (S *Reader) Next(c *v3.Matrix, box ...[]float64) error {
	if !S.readable {
		return Error{TrajUnIniRead, S.filename, []string{"Next"}, true}
	}
	var temp [3]float64
	for i := 0; i < S.natoms; i++ {
		b, err := S.h.ReadString('\n')
		if err != nil {
			//EOF should only happen when reading the first atom
			if errors.Is(err, io.EOF) && i == 0 && b == "" {
				S.Close()
				return newlastFrameError(S.filename, "Next")
			}
			return Error{ReadError + ": " + err.Error(), S.filename, []string{"Next"}, true}
		}
		if err := coordsDecode(strings.TrimSuffix(b, "\n"), &temp, S.prec); err != nil {
			return Error{err.Error(), S.filename, []string{"Next"}, true}
		}
		if c == nil {
			continue
		}
		for j, v := range temp {
			c.Set(i, j, v)
		}
	}
	s, err := S.h.ReadString('\n')
	if err != nil {
		return Error{"Can't read the frame termination mark " + err.Error(), S.filename, []string{"Next"}, true}
	}
	if s[0] != '*' {
		return Error{WrongFormat, S.filename, []string{"Next"}, true}
	}
	if len(box) > 0 && len(box[0]) >= 9 {
		fields := strings.Fields(s)
		if len(fields) < 10 {
			log.Printf("Trajectory file %s does not contain (correct) box information: %s", S.filename, fields)
			return nil
		}
		for j, v := range fields[1:10] {
			box[0][j], err = strconv.ParseFloat(v, 64)
			if err != nil {
				return Error{"Can't read box: " + err.Error(), S.filename, []string{"Next"}, true}
			}
		}
	}
	return nil
}

//Close closes the reader, and marks it as unreadable
func (S *Reader) Close() {
	if !S.readable {
		return
	}
	S.dec.Close()
	S.f.Close()
	S.readable = false
}

//Errors

//Error is the error type for trajectory files.
type Error struct {
	message  string
	filename string //the input file that has problems, or empty string if none.
	deco     []string
	critical bool
}

func (err Error) Error() string {
	return fmt.Sprintf("trajectory file %s error: %s", err.filename, err.message)
}

//Decorate Adds new information to the error
func (E Error) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

//FileName returns the file to which the failing trajectory was associated
func (err Error) FileName() string { return err.filename }

//Critical returns true if the error is critical, false otherwise
func (err Error) Critical() bool { return err.critical }

const (
	TrajUnIniRead  = "Traj object uninitialized to read"
	TrajUnIniWrite = "Traj object uninitialized to write"
	ReadError      = "Error reading frame"
	UnableToOpen   = "Unable to open file"
	NilCoordinates = "Given nil coordinates"
	WrongFormat    = "Wrong format in the trajectory file or frame"
)

//lastFrameError signals the normal end of a trajectory.
type lastFrameError struct {
	deco     []string
	fileName string
}

func (E *lastFrameError) NormalLastFrameTermination() {}

func (E *lastFrameError) FileName() string { return E.fileName }

func (E *lastFrameError) Error() string { return "EOF" }

func (E *lastFrameError) Critical() bool { return false }

func (E *lastFrameError) Decorate(deco string) []string {
	if deco != "" {
		E.deco = append(E.deco, deco)
	}
	return E.deco
}

func newlastFrameError(filename string, caller string) *lastFrameError {
	return &lastFrameError{fileName: filename, deco: []string{caller}}
}

//IsLastFrame returns true if err signals the end of a trajectory.
func IsLastFrame(err error) bool {
	var last *lastFrameError
	return errors.As(err, &last)
}
