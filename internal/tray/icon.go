package tray

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"sync"
)

const iconSize = 32

var levelColors = map[Level]color.RGBA{
	LevelUnknown:  {0x8a, 0x8a, 0x8a, 0xff},
	LevelOK:       {0x51, 0xcf, 0x66, 0xff},
	LevelLow:      {0xfc, 0xc4, 0x19, 0xff},
	LevelCritical: {0xff, 0x6b, 0x6b, 0xff},
}

var (
	iconMu    sync.Mutex
	iconCache = map[Level][]byte{}
)

// Icon returns a PNG filled circle in the level's color.
func Icon(l Level) []byte {
	iconMu.Lock()
	defer iconMu.Unlock()

	if data, ok := iconCache[l]; ok {
		return data
	}
	c, ok := levelColors[l]
	if !ok {
		c = levelColors[LevelUnknown]
	}
	data := circlePNG(c, iconSize)
	iconCache[l] = data
	return data
}

func circlePNG(c color.RGBA, size int) []byte {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	r := float64(size)/2 - 1
	center := float64(size) / 2
	for y := range size {
		for x := range size {
			dx := float64(x) + 0.5 - center
			dy := float64(y) + 0.5 - center
			if dx*dx+dy*dy <= r*r {
				img.SetRGBA(x, y, c)
			}
		}
	}

	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
