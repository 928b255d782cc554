// SPDX-License-Identifier: EPL-2.0

package vorbis_test

import (
	"fmt"
	"log"
	"os"

	"github.com/ik5/audvox/audio"
	"github.com/ik5/audvox/formats/vorbis"
)

// ExampleDecoder_Decode decodes a file and prints its loop region.
func ExampleDecoder_Decode() {
	f, err := os.Open("music.ogg")
	if err != nil {
		log.Fatal(err)
	}
	defer f.Close()

	src, err := vorbis.Decoder{}.Decode(f)
	if err != nil {
		log.Fatal(err)
	}

	if lp, ok := src.(audio.LoopPointer); ok {
		start, end := lp.LoopPoints()
		fmt.Printf("loop %d..%d\n", start, end)
	}
}

func ExampleLoopPoints() {
	start, end := vorbis.LoopPoints([]string{"TITLE=Overworld", "LOOPSTART=44100", "LOOPEND=1323000"})
	fmt.Println(start, end)
	// Output:
	// 44100 1323000
}
