package iconhandler

import (
	"errors"
	"fmt"
	"image"
	"runtime"
	"sync"
	"unsafe"

	"github.com/ebitengine/purego"
)

// errRendererUnavailable is returned by RenderToRGBA when neither
// librsvg-2.so nor libgdk_pixbuf-2.0.so could be dlopen'd on this host, the
// same "not installed here" signal the teacher's embed fallback chain
// treats as a normal, expected condition rather than a fatal error.
var errRendererUnavailable = errors.New("librsvg renderer unavailable on this host")

// svgRenderer rasterizes SVG bytes to RGBA pixels by dlopen'ing librsvg and
// gdk-pixbuf with purego, the same no-cgo RTLD_NOW/RegisterLibFunc idiom
// cmd/purego-test exercises against libc. It is process-wide: loading the
// shared libraries is expensive and librsvg handles are not meant to be
// recreated per icon.
type svgRenderer struct {
	available bool

	// mu serializes every call into librsvg/gdk-pixbuf: the underlying
	// libraries (and the FontConfig access they trigger for text-in-SVG)
	// are not reentrant, so concurrent extraction workers must not call
	// RenderToRGBA at the same time (spec §5).
	mu sync.Mutex

	handleNewFromDataFull func(data uintptr, length uintptr, errPtr *uintptr) uintptr
	handleSetSize         func(handle uintptr, w, h int32)
	handleGetPixbuf       func(handle uintptr) uintptr
	handleFree            func(handle uintptr)

	pixbufGetPixels    func(pixbuf uintptr) uintptr
	pixbufGetWidth     func(pixbuf uintptr) int32
	pixbufGetHeight    func(pixbuf uintptr) int32
	pixbufGetRowstride func(pixbuf uintptr) int32
	pixbufGetNChannels func(pixbuf uintptr) int32
	pixbufGetHasAlpha  func(pixbuf uintptr) int32
	objectUnref        func(obj uintptr)
}

func rsvgLibraryNames() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"librsvg-2.2.dylib", "librsvg-2.dylib"}
	default:
		return []string{"librsvg-2.so.2", "librsvg-2.so"}
	}
}

func gdkPixbufLibraryNames() []string {
	switch runtime.GOOS {
	case "darwin":
		return []string{"libgdk_pixbuf-2.0.dylib"}
	default:
		return []string{"libgdk_pixbuf-2.0.so.0", "libgdk_pixbuf-2.0.so"}
	}
}

func dlopenFirst(names []string) (uintptr, error) {
	var lastErr error
	for _, name := range names {
		lib, err := purego.Dlopen(name, purego.RTLD_NOW|purego.RTLD_GLOBAL)
		if err == nil {
			return lib, nil
		}
		lastErr = err
	}
	return 0, lastErr
}

// newSVGRenderer attempts to load librsvg and gdk-pixbuf. Failure to locate
// either library is not an error the caller should propagate: it just means
// SVG icons fall back to being skipped with a hint (spec §4.4 allowed
// source extensions still list svg/svgz, but rendering them requires this
// path).
func newSVGRenderer() *svgRenderer {
	r := &svgRenderer{}

	rsvgLib, err := dlopenFirst(rsvgLibraryNames())
	if err != nil {
		return r
	}
	pixbufLib, err := dlopenFirst(gdkPixbufLibraryNames())
	if err != nil {
		return r
	}

	purego.RegisterLibFunc(&r.handleNewFromDataFull, rsvgLib, "rsvg_handle_new_from_data")
	purego.RegisterLibFunc(&r.handleSetSize, rsvgLib, "rsvg_handle_set_size_callback")
	purego.RegisterLibFunc(&r.handleGetPixbuf, rsvgLib, "rsvg_handle_get_pixbuf")
	purego.RegisterLibFunc(&r.handleFree, rsvgLib, "g_object_unref")

	purego.RegisterLibFunc(&r.pixbufGetPixels, pixbufLib, "gdk_pixbuf_get_pixels")
	purego.RegisterLibFunc(&r.pixbufGetWidth, pixbufLib, "gdk_pixbuf_get_width")
	purego.RegisterLibFunc(&r.pixbufGetHeight, pixbufLib, "gdk_pixbuf_get_height")
	purego.RegisterLibFunc(&r.pixbufGetRowstride, pixbufLib, "gdk_pixbuf_get_rowstride")
	purego.RegisterLibFunc(&r.pixbufGetNChannels, pixbufLib, "gdk_pixbuf_get_n_channels")
	purego.RegisterLibFunc(&r.pixbufGetHasAlpha, pixbufLib, "gdk_pixbuf_get_has_alpha")
	purego.RegisterLibFunc(&r.objectUnref, rsvgLib, "g_object_unref")

	r.available = true
	return r
}

// Available reports whether the dlopen path succeeded on this host.
func (r *svgRenderer) Available() bool { return r.available }

// RenderToRGBA rasterizes svgData to an RGBA image sized width x height
// (already scaled by the target's display scale), matching spec §4.4's
// "render SVG to PNG via a canvas of (width*scale, height*scale)".
func (r *svgRenderer) RenderToRGBA(svgData []byte, width, height int) (*image.RGBA, error) {
	if !r.available {
		return nil, errRendererUnavailable
	}
	if len(svgData) == 0 {
		return nil, fmt.Errorf("empty svg data")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	dataPtr := uintptr(unsafe.Pointer(&svgData[0]))
	var gerr uintptr
	handle := r.handleNewFromDataFull(dataPtr, uintptr(len(svgData)), &gerr)
	if handle == 0 {
		return nil, fmt.Errorf("rsvg_handle_new_from_data failed")
	}
	defer r.objectUnref(handle)

	r.handleSetSize(handle, int32(width), int32(height))

	pixbuf := r.handleGetPixbuf(handle)
	if pixbuf == 0 {
		return nil, fmt.Errorf("rsvg_handle_get_pixbuf returned nil")
	}
	defer r.objectUnref(pixbuf)

	pw := int(r.pixbufGetWidth(pixbuf))
	ph := int(r.pixbufGetHeight(pixbuf))
	rowstride := int(r.pixbufGetRowstride(pixbuf))
	channels := int(r.pixbufGetNChannels(pixbuf))
	hasAlpha := r.pixbufGetHasAlpha(pixbuf) != 0
	pixelsPtr := r.pixbufGetPixels(pixbuf)
	if pixelsPtr == 0 || pw == 0 || ph == 0 {
		return nil, fmt.Errorf("gdk-pixbuf returned an empty buffer")
	}

	raw := unsafe.Slice((*byte)(unsafe.Pointer(pixelsPtr)), rowstride*ph)
	img := image.NewRGBA(image.Rect(0, 0, pw, ph))
	for y := 0; y < ph; y++ {
		srcRow := raw[y*rowstride : y*rowstride+pw*channels]
		dstRow := img.Pix[y*img.Stride : y*img.Stride+pw*4]
		for x := 0; x < pw; x++ {
			r8 := srcRow[x*channels]
			g8 := srcRow[x*channels+1]
			b8 := srcRow[x*channels+2]
			a8 := byte(255)
			if hasAlpha && channels >= 4 {
				a8 = srcRow[x*channels+3]
			}
			dstRow[x*4] = r8
			dstRow[x*4+1] = g8
			dstRow[x*4+2] = b8
			dstRow[x*4+3] = a8
		}
	}
	return img, nil
}
