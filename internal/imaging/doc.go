// Package imaging provides the image handling around keypoint detection:
// loading and caching files, selecting the part of an image to search, and
// drawing detected keypoints for inspection.
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based with (0,0) at the
// top-left corner, X increasing rightward and Y increasing downward. For
// regions, (X1,Y1) is inclusive and (X2,Y2) is exclusive.
//
// # Supported Formats
//
// Load decodes PNG, JPEG, GIF, BMP, TIFF and WebP. Overlays are encoded as
// PNG, JPEG or WebP.
//
// # Regions and Downscaling
//
// Detection can run on a crop or a reduced copy of an image. CropRegion and
// Downscale produce that copy; MapKeypoints converts the keypoints found in
// it back to the coordinates of the original:
//
//	sub, _ := imaging.CropRegion(img, region)
//	small, _ := imaging.Downscale(sub, 0.5)
//	kps, _ := detection.Detect(small, opts)
//	kps = imaging.MapKeypoints(kps, region.X1, region.Y1, 0.5)
//
// # Overlays
//
// DrawKeypoints renders each keypoint as a circle whose diameter follows
// its scale, blue for a positive Laplacian and red otherwise, with a white
// radius pointing along its orientation.
//
// # Thread Safety
//
// ImageCache is safe for concurrent use. The other functions are stateless
// and never modify their input image.
package imaging
