// Package video defines the multi-scene video pipeline: a storyboard stage
// plans the scenes, one scene stage per storyboard scene renders and stores a
// clip in order, and an editor stage combines the clips into the final video.
//
// Any stage failure fails the whole job; a video with a missing scene is not
// published.
package video
