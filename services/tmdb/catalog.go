package tmdb

// GenreTile is one entry of the browse-by-genre grid.
type GenreTile struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// GenreTiles is the fixed genre grid offered on the search screen, in
// display order.
var GenreTiles = []GenreTile{
	{28, "Action"},
	{12, "Adventure"},
	{35, "Comedy"},
	{18, "Drama"},
	{10749, "Romance"},
	{27, "Horror"},
	{878, "Sci-Fi"},
	{14, "Fantasy"},
	{53, "Thriller"},
	{80, "Crime"},
	{16, "Animation"},
	{10751, "Family"},
}

// GenreName resolves a genre id to its tile name, or "Genre" when unknown.
func GenreName(id int64) string {
	for _, g := range GenreTiles {
		if g.ID == id {
			return g.Name
		}
	}
	return "Genre"
}

// Company is a production company the app filters by.
type Company struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// CompanyList is the studio row in display order.
var CompanyList = []Company{
	{213, "Netflix"},
	{2, "Disney"},
	{420, "Marvel"},
	{3, "Pixar"},
	{174, "Warner Bros"},
	{33, "Universal"},
}

// Companies maps studio keys to their TMDB company ids.
var Companies = map[string]Company{
	"netflix":   {213, "Netflix"},
	"disney":    {2, "Disney"},
	"marvel":    {420, "Marvel"},
	"pixar":     {3, "Pixar"},
	"warner":    {174, "Warner Bros"},
	"universal": {33, "Universal"},
}
