// Copyright 2024 Jack Bister
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"github.com/brianvoe/gofakeit"
	"github.com/klauspost/compress/gzip"
)

type fakeFile struct {
	name string
	size int
}

type fakeUser struct {
	ip        string
	userID    string
	userAgent string
}

func main() {
	outFlag := flag.String("out", "small-sample.log.gz", "The gzip file to write the generated access log to.")
	numLines := flag.Int("numLines", 1000, "The number of lines to generate.")
	numUsers := flag.Int("numUsers", 10, "The number of users to simulate. Each user will have its own randomly generated IP address and user agent in the output log.")
	seed := flag.Int64("seed", 0, "Seed for the random generator. The same seed always produces the same file. If 0, the current time is used.")
	startFlag := flag.String("start", "", "The timestamp of the first line, in any common date format. Defaults to the current time.")
	interval := flag.Duration("interval", 100*time.Millisecond, "The time between two consecutive lines.")
	bareRatio := flag.Float64("bareRatio", 0.1, "The fraction of lines that are written without referrer and user agent.")
	garbageRatio := flag.Float64("garbageRatio", 0.01, "The fraction of lines that are not access log lines at all.")
	blankRatio := flag.Float64("blankRatio", 0.01, "The fraction of lines that are blank.")
	flag.Parse()

	if *seed == 0 {
		*seed = time.Now().UnixNano()
	}
	start := time.Now()
	if *startFlag != "" {
		parsed, err := dateparse.ParseAny(*startFlag)
		if err != nil {
			fmt.Println("Got error when parsing start time:", err)
			os.Exit(1)
		}
		start = parsed
	}

	outFile, err := os.Create(*outFlag)
	if err != nil {
		fmt.Println("Got error when opening output file:", err)
		os.Exit(1)
	}
	gz := gzip.NewWriter(outFile)
	w := bufio.NewWriter(gz)

	gen := newGenerator(*seed, *numUsers)
	ts := start
	for i := 0; i < *numLines; i++ {
		r := gen.rnd.Float64()
		var line string
		switch {
		case r < *blankRatio:
			line = ""
		case r < *blankRatio+*garbageRatio:
			line = gen.garbageLine()
		default:
			line = gen.accessLine(ts, gen.rnd.Float64() < *bareRatio)
		}
		ts = ts.Add(*interval)
		if _, err := w.WriteString(line + "\n"); err != nil {
			fmt.Println("Got error when writing to output file:", err)
			os.Exit(1)
		}
	}

	if err := w.Flush(); err != nil {
		fmt.Println("Got error when flushing output file:", err)
		os.Exit(1)
	}
	if err := gz.Close(); err != nil {
		fmt.Println("Got error when closing gzip stream:", err)
		os.Exit(1)
	}
	if err := outFile.Close(); err != nil {
		fmt.Println("Got error when closing output file:", err)
		os.Exit(1)
	}
	fmt.Printf("Wrote %d lines to %s (seed %d)\n", *numLines, *outFlag, *seed)
}

type generator struct {
	rnd      *rand.Rand
	fakeUrls []fakeFile
	users    []fakeUser
}

func newGenerator(seed int64, numUsers int) *generator {
	gofakeit.Seed(seed)
	g := &generator{
		rnd:      rand.New(rand.NewSource(seed)),
		fakeUrls: make([]fakeFile, 50),
		users:    make([]fakeUser, numUsers),
	}
	for i := range g.fakeUrls {
		url := gofakeit.Generate("/{lorem.word}/{lorem.word}.{file.extension}")
		if g.rnd.Intn(4) == 0 {
			url += "?q=" + gofakeit.Generate("{lorem.word}")
		}
		g.fakeUrls[i] = fakeFile{url, g.rnd.Intn(20000 * (i + 1))}
	}
	for i := range g.users {
		userID := "-"
		if g.rnd.Intn(3) == 0 {
			// the user id must be a single token
			userID = strings.Join(strings.Fields(gofakeit.Username()), "")
		}
		g.users[i] = fakeUser{
			ip:        gofakeit.IPv4Address(),
			userID:    userID,
			userAgent: gofakeit.UserAgent(),
		}
	}
	return g
}

func (g *generator) accessLine(ts time.Time, bare bool) string {
	user := &g.users[g.rnd.Intn(len(g.users))]
	fakeUrl := &g.fakeUrls[g.rnd.Intn(len(g.fakeUrls))]
	status := g.randomStatus()
	size := "-"
	if status != 204 && status != 301 {
		size = fmt.Sprint(fakeUrl.size)
	}

	sb := strings.Builder{}
	sb.WriteString(user.ip)
	sb.WriteString(" - ")
	sb.WriteString(user.userID)
	sb.WriteString(" [")
	sb.WriteString(ts.Format("02/Jan/2006:15:04:05 -0700"))
	fmt.Fprintf(&sb, "] \"%v %v HTTP/1.1\" %v %v", g.randomMethod(), fakeUrl.name, status, size)
	if !bare {
		referrer := "-"
		if g.rnd.Intn(2) == 0 {
			referrer = gofakeit.URL()
		}
		fmt.Fprintf(&sb, " \"%v\" \"%v\"", referrer, user.userAgent)
	}
	return sb.String()
}

func (g *generator) garbageLine() string {
	return gofakeit.HackerPhrase()
}

func (g *generator) randomStatus() int {
	r := g.rnd.Intn(100)
	if r < 80 {
		return 200
	}
	if r < 90 {
		return 204
	}
	if r < 95 {
		return 301
	}
	if r < 97 {
		return 404
	}
	if r < 99 {
		return 400
	}
	return 500
}

func (g *generator) randomMethod() string {
	r := g.rnd.Intn(100)
	if r < 80 {
		return "GET"
	}
	if r < 90 {
		return "POST"
	}
	if r < 95 {
		return "DELETE"
	}
	return "PUT"
}
