package smoke

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/conftix/pkg/logger"
)

const (
	avatarSize    = 96
	avatarQuality = 85
)

var (
	firstNames = []string{"Ada", "Grace", "Linus", "Barbara", "Ken", "Margaret", "Dennis", "Frances", "Rob", "Radia"}
	lastNames  = []string{"Lovelace", "Hopper", "Torvalds", "Liskov", "Thompson", "Hamilton", "Ritchie", "Allen", "Pike", "Perlman"}
)

// generate builds n registrations, cycling through handles.
func generate(ctx context.Context, n int, handles []string) ([]Registration, error) {
	logger.Get().Info(ctx, "generating registrations", logger.Int("count", n))

	regs := make([]Registration, n)
	for i := range regs {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("generation cancelled: %w", err)
		}
		avatar, err := randomAvatar()
		if err != nil {
			return nil, fmt.Errorf("avatar %d: %w", i, err)
		}
		regs[i] = Registration{
			FullName: firstNames[rand.IntN(len(firstNames))] + " " + lastNames[rand.IntN(len(lastNames))],
			Email:    "smoke+" + uuid.NewString() + "@example.com",
			GitHub:   handles[i%len(handles)],
			Avatar:   avatar,
		}
	}
	return regs, nil
}

// randomAvatar draws a two tone gradient so every upload is distinct.
func randomAvatar() ([]byte, error) {
	from := color.RGBA{R: uint8(rand.IntN(256)), G: uint8(rand.IntN(256)), B: uint8(rand.IntN(256)), A: 0xff}
	to := color.RGBA{R: uint8(rand.IntN(256)), G: uint8(rand.IntN(256)), B: uint8(rand.IntN(256)), A: 0xff}

	img := image.NewRGBA(image.Rect(0, 0, avatarSize, avatarSize))
	for y := 0; y < avatarSize; y++ {
		for x := 0; x < avatarSize; x++ {
			t := (x + y) * 255 / (2 * avatarSize)
			img.Set(x, y, color.RGBA{
				R: mix(from.R, to.R, t),
				G: mix(from.G, to.G, t),
				B: mix(from.B, to.B, t),
				A: 0xff,
			})
		}
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: avatarQuality}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func mix(a, b uint8, t int) uint8 {
	return uint8((int(a)*(255-t) + int(b)*t) / 255)
}
