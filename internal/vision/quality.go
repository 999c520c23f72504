package vision

import (
	"image"
	"math"

	"gocv.io/x/gocv"
)

// QualityScore computes the 0..1 quality score for a detected face crop
// against the person crop it was found in: 0.4 normalized face area +
// 0.4 normalized sharpness + 0.2 brightness-closeness.
func QualityScore(personCrop image.Image, faceBBox [4]float32) (float32, error) {
	mat, err := imageToMat(personCrop)
	if err != nil {
		return 0, err
	}
	defer mat.Close()

	personW := float32(mat.Cols())
	personH := float32(mat.Rows())
	if personW <= 0 || personH <= 0 {
		return 0, nil
	}

	faceW := faceBBox[2] - faceBBox[0]
	faceH := faceBBox[3] - faceBBox[1]
	normArea := clampF((faceW*faceH)/(personW*personH), 0, 1)

	x1, y1 := int(clampF(faceBBox[0], 0, personW-1)), int(clampF(faceBBox[1], 0, personH-1))
	x2, y2 := int(clampF(faceBBox[2], 1, personW)), int(clampF(faceBBox[3], 1, personH))
	if x2 <= x1 || y2 <= y1 {
		return 0, nil
	}

	faceRegion := mat.Region(image.Rect(x1, y1, x2, y2))
	defer faceRegion.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(faceRegion, &gray, gocv.ColorBGRToGray)

	lap := gocv.NewMat()
	defer lap.Close()
	gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault)

	mean, stddev := gocv.NewMat(), gocv.NewMat()
	defer mean.Close()
	defer stddev.Close()
	gocv.MeanStdDev(lap, &mean, &stddev)
	variance := stddev.GetDoubleAt(0, 0)
	variance *= variance

	// Calibration constant chosen so a sharply focused close-up face lands
	// near 1.0 without saturating well-lit but softly focused crops.
	const sharpnessCalibration = 500.0
	normSharpness := clampF(float32(variance/sharpnessCalibration), 0, 1)

	m := gray.Mean()
	brightness := m.Val1
	brightnessCloseness := clampF(float32(1-math.Abs(brightness-128)/128), 0, 1)

	score := 0.4*normArea + 0.4*normSharpness + 0.2*brightnessCloseness
	return clampF(score, 0, 1), nil
}

// PreprocessFace applies tile-based local contrast equalization (CLAHE)
// and a light sharpen blended 70/30 with the original, compensating for
// oblique and distant viewing angles before encoding.
func PreprocessFace(faceCrop image.Image) (image.Image, error) {
	mat, err := imageToMat(faceCrop)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	ycrcb := gocv.NewMat()
	defer ycrcb.Close()
	gocv.CvtColor(mat, &ycrcb, gocv.ColorBGRToYCrCb)

	channels := gocv.Split(ycrcb)
	defer func() {
		for _, c := range channels {
			c.Close()
		}
	}()

	clahe := gocv.NewCLAHEWithParams(2.0, image.Pt(8, 8))
	defer clahe.Close()
	equalized := gocv.NewMat()
	defer equalized.Close()
	clahe.Apply(channels[0], &equalized)
	equalized.CopyTo(&channels[0])

	merged := gocv.NewMat()
	defer merged.Close()
	gocv.Merge(channels, &merged)

	contrastAdjusted := gocv.NewMat()
	defer contrastAdjusted.Close()
	gocv.CvtColor(merged, &contrastAdjusted, gocv.ColorYCrCbToBGR)

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(contrastAdjusted, &blurred, image.Pt(0, 0), 3, 3, gocv.BorderDefault)

	sharpened := gocv.NewMat()
	defer sharpened.Close()
	gocv.AddWeighted(contrastAdjusted, 1.5, blurred, -0.5, 0, &sharpened)

	blended := gocv.NewMat()
	defer blended.Close()
	gocv.AddWeighted(sharpened, 0.7, contrastAdjusted, 0.3, 0, &blended)

	return blended.ToImage()
}

func imageToMat(img image.Image) (gocv.Mat, error) {
	return gocv.ImageToMatRGB(img)
}
