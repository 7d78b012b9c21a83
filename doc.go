/*
go-depthcount counts people walking under an overhead depth camera.

Depth frames are clipped to a distance threshold and remapped so near objects
are bright, blobs are extracted from the result and associated frame to frame
into tracks.  A track whose movement crosses the horizontal midline of the
frame is counted in (moving up) or out (moving down), with the blob area used
to estimate if one, two or three people crossed together.

The Pipeline runs this loop on a single worker goroutine reading from a
source.FrameSource.  Annotated frames are handed to sinks for display,
recording and MJPEG streaming, and crossings can be journaled to SQLite.

See the example/counter command for a complete program.
*/
package depthcount
