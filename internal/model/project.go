package model

// Project owns the apps, publishing accounts and media resources of a title
type Project struct {
	Base
	Countries      []string         `json:"countries,omitempty"`
	Credits        []map[string]any `json:"credits,omitempty"`
	Genres         []string         `json:"genres,omitempty"`
	ReleaseDate    Timestamp        `json:"release_date"`
	Synopsis       string           `json:"synopsis,omitempty"`
	Title          string           `json:"title,omitempty"`
	StylesheetURL  string           `json:"stylesheet_url,omitempty"`
	Homepage       string           `json:"homepage,omitempty"`
	DefaultImageID string           `json:"default_image_id,omitempty"`
	DefaultVideoID string           `json:"default_video_id,omitempty"`
	Links          []any            `json:"links,omitempty"`

	PubAccountIDs []string `json:"pub_account_ids,omitempty"`
	ImageIDs      []string `json:"image_ids,omitempty"`
	VideoIDs      []string `json:"video_ids,omitempty"`
	ImageListIDs  []string `json:"image_list_ids,omitempty"`
	VideoListIDs  []string `json:"video_list_ids,omitempty"`
	AppIDs        []string `json:"app_ids,omitempty"`
}

func (*Project) Kind() Kind { return KindProject }

func (p *Project) IndexValues() map[string]string {
	return map[string]string{"slug": p.Slug}
}

func (p *Project) Lists() []List {
	return []List{
		{Name: "pub_accounts", Kind: KindPubAccount, IDs: &p.PubAccountIDs},
		{Name: "images", Kind: KindImage, IDs: &p.ImageIDs},
		{Name: "videos", Kind: KindVideo, IDs: &p.VideoIDs},
		{Name: "image_lists", Kind: KindImageList, IDs: &p.ImageListIDs},
		{Name: "video_lists", Kind: KindVideoList, IDs: &p.VideoListIDs},
		{Name: "apps", Kind: KindApp, IDs: &p.AppIDs},
	}
}

func (*Project) RemoteCollections() []Collection {
	return []Collection{
		{Name: "resources", Feeds: []string{"images", "videos", "image_lists", "video_lists"}},
		{Name: "pub_accounts", Fallback: KindPubAccount, Feeds: []string{"pub_accounts"}},
		{Name: "apps", Fallback: KindApp, Feeds: []string{"apps"}},
	}
}

// CreditsByJob returns the names credited for job
func (p *Project) CreditsByJob(job string) []string {
	var names []string
	for _, c := range p.Credits {
		if j, _ := c["job"].(string); j != job {
			continue
		}
		if name, ok := c["name"].(string); ok {
			names = append(names, name)
		}
	}
	return names
}

// ReleaseYear returns the release year, or 0 when unknown
func (p *Project) ReleaseYear() int {
	if p.ReleaseDate.IsZero() {
		return 0
	}
	return p.ReleaseDate.Year()
}

// ProjectList is a named selection of projects, looked up by name
type ProjectList struct {
	Base
	ProjectIDs []string `json:"project_ids,omitempty"`
}

func (*ProjectList) Kind() Kind { return KindProjectList }

func (l *ProjectList) IndexValues() map[string]string {
	return map[string]string{"name": l.Name}
}

func (l *ProjectList) Lists() []List {
	return []List{{Name: "projects", Kind: KindProject, IDs: &l.ProjectIDs}}
}
