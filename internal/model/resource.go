package model

import "fmt"

// Resource holds the attributes shared by media records
type Resource struct {
	Base
	ProjectID string         `json:"project_id,omitempty"`
	Paths     map[string]any `json:"paths,omitempty"`
}

func (r *Resource) IndexValues() map[string]string {
	return map[string]string{"project_id": r.ProjectID}
}

type Image struct {
	Resource
}

func (*Image) Kind() Kind { return KindImage }

type Video struct {
	Resource
	Encoding string `json:"encoding,omitempty"`
}

func (*Video) Kind() Kind { return KindVideo }

// PlayCount reads stats.play.t, the total play counter
func (v *Video) PlayCount() int64 {
	play, ok := v.Stats["play"].(map[string]any)
	if !ok {
		return 0
	}
	switch t := play["t"].(type) {
	case float64:
		return int64(t)
	case int:
		return int64(t)
	case int64:
		return t
	}
	return 0
}

// RevisionExtras folds plays into the revision so counters refresh the cache
func (v *Video) RevisionExtras() []string {
	return []string{fmt.Sprintf("play=%d", v.PlayCount())}
}

type ImageList struct {
	Resource
	ImageIDs []string `json:"image_ids,omitempty"`
}

func (*ImageList) Kind() Kind { return KindImageList }

func (l *ImageList) Lists() []List {
	return []List{{Name: "images", Kind: KindImage, IDs: &l.ImageIDs}}
}

type VideoList struct {
	Resource
	VideoIDs []string `json:"video_ids,omitempty"`
}

func (*VideoList) Kind() Kind { return KindVideoList }

func (l *VideoList) Lists() []List {
	return []List{{Name: "videos", Kind: KindVideo, IDs: &l.VideoIDs}}
}

// ResourceList mixes images and videos
type ResourceList struct {
	Resource
	ImageIDs []string `json:"image_ids,omitempty"`
	VideoIDs []string `json:"video_ids,omitempty"`
}

func (*ResourceList) Kind() Kind { return KindResourceList }

func (l *ResourceList) Lists() []List {
	return []List{
		{Name: "images", Kind: KindImage, IDs: &l.ImageIDs},
		{Name: "videos", Kind: KindVideo, IDs: &l.VideoIDs},
	}
}
