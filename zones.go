package main

import (
	"image"
	"time"

	"golang.org/x/image/font"
)

// splitZones subdivides the canvas by zone count:
// 2 -> two stacked halves, 3 -> full-width top row plus two bottom halves,
// 4 -> four quadrants. Counts outside 2-4 collapse to the whole canvas.
func splitZones(width, height, count int) []image.Rectangle {
	switch count {
	case 2:
		return []image.Rectangle{
			image.Rect(0, 0, width, height/2),
			image.Rect(0, height/2, width, height),
		}
	case 3:
		return []image.Rectangle{
			image.Rect(0, 0, width, height/2),
			image.Rect(0, height/2, width/2, height),
			image.Rect(width/2, height/2, width, height),
		}
	case 4:
		return []image.Rectangle{
			image.Rect(0, 0, width/2, height/2),
			image.Rect(width/2, 0, width, height/2),
			image.Rect(0, height/2, width/2, height),
			image.Rect(width/2, height/2, width, height),
		}
	default:
		return []image.Rectangle{image.Rect(0, 0, width, height)}
	}
}

// renderZones lays out a multi-zone item. Zone 0 reuses the item's own
// text/icon/label; zones 1..2 come from the Zones sub-records. With four
// zones all sub-records are consumed and the last quadrant stays blank if
// none is left.
func (cp *Compositor) renderZones(frame *image.RGBA, app *AppItem, now time.Time) bool {
	rects := splitZones(cp.width, cp.height, app.ZoneCount)

	contents := make([]itemContent, 0, len(rects))
	contents = append(contents, itemContent{
		Text:          app.Text,
		Segments:      app.Segments,
		Icon:          app.Icon,
		Label:         app.Label,
		LabelSegments: app.LabelSegments,
		Color:         app.Color,
	})
	for i := 0; i < MAX_ZONES && len(contents) < len(rects); i++ {
		z := app.Zones[i]
		contents = append(contents, itemContent{
			Text:          z.Text,
			Segments:      z.Segments,
			Icon:          z.Icon,
			Label:         z.Label,
			LabelSegments: z.LabelSegments,
			Color:         z.Color,
		})
	}

	for i := range contents {
		cp.renderZone(frame, rects[i], contents[i], now)
	}
	return false
}

// renderZone applies the zone-local layout policy. Full-width zones place
// icon-left/text-right side by side; half-width zones stack the icon on
// top with the text beside it and the label at the bottom, dropping to the
// compact face when default-font text would overflow.
func (cp *Compositor) renderZone(frame *image.RGBA, rect image.Rectangle, it itemContent, now time.Time) {
	region := frame.SubImage(rect).(*image.RGBA)
	fullWidth := rect.Dx() >= cp.width

	textX := rect.Min.X + 2
	textAvail := rect.Dx() - 4
	textTop := rect.Min.Y
	textHeight := rect.Dy()

	if icon := cp.resolveIcon(it.Icon); icon != nil {
		icon = upscaleSmallIcon(icon)
		iw := icon.Bounds().Dx()
		ih := icon.Bounds().Dy()
		if fullWidth {
			copyImageToImageAt(region, icon, rect.Min.X+2, rect.Min.Y+(rect.Dy()-ih)/2)
		} else {
			copyImageToImageAt(region, icon, rect.Min.X+2, rect.Min.Y+1)
		}
		textX = rect.Min.X + 2 + iw + 2
		textAvail = rect.Max.X - textX - 2
	}

	labelFits := it.Label != "" && !fullWidth
	if labelFits {
		textHeight -= faceHeight(cp.faces.Label) + 1
		cp.drawLabel(region, rect, it.Label, it.LabelSegments, it.Color)
	}

	text := transliterate(it.Text)
	face := cp.zoneFace(text, textAvail)
	fh := faceHeight(face)
	textY := textTop + (textHeight-fh)/2
	if textY < textTop {
		textY = textTop
	}
	cp.drawSegmentedText(region, text, it.Segments, it.Color, textX, textY, face)

	if it.Label != "" && fullWidth {
		// Full-width zones keep the label inline after the text.
		tw := measureText(face, text)
		cp.drawSegmentedText(region, transliterate(it.Label), it.LabelSegments,
			dimColor(it.Color), textX+tw+3, textY, cp.faces.Label)
	}
}

// zoneFace picks the default face unless the text would overflow the zone.
func (cp *Compositor) zoneFace(text string, avail int) font.Face {
	if measureText(cp.faces.Default, text) > avail {
		return cp.faces.Compact
	}
	return cp.faces.Default
}
