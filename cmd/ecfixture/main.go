// The MIT License (MIT)
//
// # Copyright (c) 2016 xtaci
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// ecfixture drives a math Context end to end: build a stripe of random
// data, calculate parity, fail a pattern of blocks, then reconstruct them
// either in bulk or through incremental recovery, and report whether the
// reconstruction matches the original. It exists to exercise engine and
// ir against realistic shapes as a fixture, not as part of the coding
// engine itself.
package main

import (
	"bytes"
	"crypto/rand"
	"log"
	"os"

	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"github.com/xtaci/ecparity/bufvec"
	"github.com/xtaci/ecparity/engine"
	"github.com/xtaci/ecparity/ir"
	"github.com/xtaci/ecparity/std"
)

// VERSION is injected by buildflags
var VERSION = "SELFBUILD"

func main() {
	if VERSION == "SELFBUILD" {
		log.SetFlags(log.LstdFlags | log.Lshortfile)
	}

	myApp := cli.NewApp()
	myApp.Name = "ecfixture"
	myApp.Usage = "erasure coding engine fixture: encode, fail, recover"
	myApp.Version = VERSION
	myApp.Flags = []cli.Flag{
		cli.IntFlag{
			Name:  "datashard,ds",
			Value: 10,
			Usage: "set reed-solomon erasure coding - datashard",
		},
		cli.IntFlag{
			Name:  "parityshard,ps",
			Value: 3,
			Usage: "set reed-solomon erasure coding - parityshard",
		},
		cli.IntFlag{
			Name:  "blocksize,bs",
			Value: 4096,
			Usage: "block size in bytes",
		},
		cli.StringFlag{
			Name:  "fail",
			Value: "0,10",
			Usage: "comma-separated block indices (0..datashard+parityshard-1) to fail",
		},
		cli.BoolFlag{
			Name:  "ir",
			Usage: "reconstruct via incremental recovery instead of bulk recover",
		},
		cli.StringFlag{
			Name:  "metricslog",
			Value: "",
			Usage: "collect engine metrics to file, aware of timeformat in golang, like: ./ec-20060102.log",
		},
		cli.IntFlag{
			Name:  "metricsperiod",
			Value: 5,
			Usage: "metrics collect period, in seconds",
		},
		cli.StringFlag{
			Name:  "c",
			Value: "",
			Usage: "config from json file, which will override the command from shell",
		},
	}
	myApp.Action = run
	myApp.Run(os.Args)
}

func run(c *cli.Context) error {
	config := Config{}
	config.DataShard = c.Int("datashard")
	config.ParityShard = c.Int("parityshard")
	config.BlockSize = c.Int("blocksize")
	config.Fail = parseFailList(c.String("fail"))
	config.IR = c.Bool("ir")
	config.MetricsLog = c.String("metricslog")
	config.MetricsPeriod = c.Int("metricsperiod")

	if c.String("c") != "" {
		if err := parseJSONConfig(&config, c.String("c")); err != nil {
			return errors.Wrap(err, "parseJSONConfig")
		}
	}

	log.Println("datashard:", config.DataShard, "parityshard:", config.ParityShard)
	log.Println("blocksize:", config.BlockSize)
	log.Println("fail:", config.Fail)
	log.Println("ir:", config.IR)
	log.Println("metricslog:", config.MetricsLog)
	log.Println("metricsperiod:", config.MetricsPeriod)

	math, err := engine.Init(config.DataShard, config.ParityShard)
	if err != nil {
		return errors.Wrap(err, "engine.Init")
	}

	if config.MetricsLog != "" {
		go std.MetricsLogger(config.MetricsLog, config.MetricsPeriod, func() std.Source {
			snap := math.Snapshot()
			return snap
		})
	}

	data := randomBlocks(config.DataShard, config.BlockSize)
	parity := randomBlocks(config.ParityShard, config.BlockSize)
	if err := math.Calculate(data, parity); err != nil {
		return errors.Wrap(err, "Calculate")
	}

	original := cloneBlocks(append(append([][]byte{}, data...), parity...))

	fails := make([]byte, config.DataShard+config.ParityShard)
	for _, idx := range config.Fail {
		fails[idx] = 1
		if idx < config.DataShard {
			zero(data[idx])
		} else {
			zero(parity[idx-config.DataShard])
		}
	}

	if config.IR {
		if err := recoverIncremental(math, data, parity, fails, config.Fail); err != nil {
			return errors.Wrap(err, "recoverIncremental")
		}
	} else {
		if err := math.Recover(data, parity, fails, engine.Gaussian); err != nil {
			return errors.Wrap(err, "Recover")
		}
	}

	reconstructed := append(append([][]byte{}, data...), parity...)
	ok := true
	for _, idx := range config.Fail {
		if !bytes.Equal(original[idx], reconstructed[idx]) {
			ok = false
			log.Println("mismatch at block", idx)
		}
	}
	if ok {
		log.Println("recovery OK")
	} else {
		log.Fatal("recovery FAILED")
	}
	return nil
}

// recoverIncremental drives the ir package's incremental-recovery state
// machine over the same failure pattern Recover would handle in bulk,
// delivering every surviving block as a single LOCAL contribution.
func recoverIncremental(math *engine.Context, data, parity [][]byte, fails []byte, failIdx []int) error {
	n, k := math.N, math.K
	failSet := make(map[int]bool, len(failIdx))
	for _, idx := range failIdx {
		failSet[idx] = true
	}
	var alive []int
	for i := 0; i < n+k; i++ {
		if !failSet[i] {
			alive = append(alive, i)
		}
	}

	irc, err := ir.Init(math, len(alive))
	if err != nil {
		return err
	}

	block := func(idx int) []byte {
		if idx < n {
			return data[idx]
		}
		return parity[idx-n]
	}

	buf := func(idx int) (*bufvec.BufVec, error) {
		return bufvec.Split(block(idx), 1)
	}

	for _, idx := range failIdx {
		b, err := buf(idx)
		if err != nil {
			return err
		}
		if err := irc.FailureRegister(b, idx); err != nil {
			return err
		}
	}
	if err := irc.MatCompute(); err != nil {
		return err
	}

	for _, idx := range alive {
		b, err := buf(idx)
		if err != nil {
			return err
		}
		bm := ir.Bitmap{}
		bm.Set(idx)
		if err := irc.IrRecover(b, &bm, idx, ir.Local); err != nil {
			return err
		}
	}

	if !irc.Done() {
		return errors.New("ecfixture: incremental recovery did not converge")
	}
	irc.Fini()
	return nil
}

func parseFailList(s string) []int {
	var out []int
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, atoi(s[start:i]))
			}
			start = i + 1
		}
	}
	return out
}

func atoi(s string) int {
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			continue
		}
		n = n*10 + int(c-'0')
	}
	return n
}

func randomBlocks(count, size int) [][]byte {
	blocks := make([][]byte, count)
	for i := range blocks {
		blocks[i] = make([]byte, size)
		if _, err := rand.Read(blocks[i]); err != nil {
			log.Fatal(err)
		}
	}
	return blocks
}

func cloneBlocks(blocks [][]byte) [][]byte {
	out := make([][]byte, len(blocks))
	for i, b := range blocks {
		out[i] = append([]byte{}, b...)
	}
	return out
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
