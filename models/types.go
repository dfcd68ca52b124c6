package models

import "time"

// ServiceName identifies this service in error payloads
const ServiceName = "result-query"

// Unknown is reported for catalog fields of items missing from the catalog
const Unknown = "unknown"

// Request types

// RankingQueryRequest is the common request body. Query is the filter DSL;
// an empty query selects every ballot of the year.
type RankingQueryRequest struct {
	Query     string    `json:"query,omitempty"`
	VoteStart time.Time `json:"vote_start" validate:"required"`
	VoteYear  int       `json:"vote_year"`
}

// RankRequest addresses a single ranking position (reasons, single entry,
// pairing trend).
type RankRequest struct {
	RankingQueryRequest
	Rank int `json:"rank" validate:"gte=1"`
}

// TrendRequest addresses an item (or question) by name.
type TrendRequest struct {
	RankingQueryRequest
	Name string `json:"name" validate:"required"`
}

type CovoteRequest struct {
	RankingQueryRequest
	FirstK int `json:"first_k" validate:"gte=1"`
}

type QueryQuestionnaireRequest struct {
	RankingQueryRequest
	QuestionsOfInterest []string `json:"questions_of_interest" validate:"min=1,dive,required"`
}

// Response types

type TrendItem struct {
	Hrs       int `json:"hrs"`
	VoteCount int `json:"vote_count"`
}

// RankingEntry is one character or music in a ranking.
type RankingEntry struct {
	Rank                     int         `json:"rank"`
	DisplayRank              int         `json:"display_rank"`
	Name                     string      `json:"name"`
	VoteCount                int         `json:"vote_count"`
	FirstVoteCount           int         `json:"first_vote_count"`
	FirstVotePercentage      float64     `json:"first_vote_percentage"`
	FirstVoteCountWeighted   int         `json:"first_vote_count_weighted"`
	CharacterType            string      `json:"character_type"`
	CharacterOrigin          string      `json:"character_origin"`
	FirstAppearance          string      `json:"first_appearance"`
	NameJpn                  string      `json:"name_jpn"`
	VotePercentage           float64     `json:"vote_percentage"`
	FirstPercentage          float64     `json:"first_percentage"`
	MaleVoteCount            int         `json:"male_vote_count"`
	MalePercentagePerChar    float64     `json:"male_percentage_per_char"`
	MalePercentagePerTotal   float64     `json:"male_percentage_per_total"`
	FemaleVoteCount          int         `json:"female_vote_count"`
	FemalePercentagePerChar  float64     `json:"female_percentage_per_char"`
	FemalePercentagePerTotal float64     `json:"female_percentage_per_total"`
	Trend                    []TrendItem `json:"trend"`
	TrendFirst               []TrendItem `json:"trend_first"`
	Reasons                  []string    `json:"reasons"`
}

type Pairing struct {
	A string `json:"a"`
	B string `json:"b"`
	C string `json:"c,omitempty"`
}

// CPRankingEntry is one pairing in the pairing ranking.
type CPRankingEntry struct {
	Rank                     int         `json:"rank"`
	DisplayRank              int         `json:"display_rank"`
	Name                     string      `json:"name"`
	CP                       Pairing     `json:"cp"`
	VoteCount                int         `json:"vote_count"`
	FirstVoteCount           int         `json:"first_vote_count"`
	FirstVotePercentage      float64     `json:"first_vote_percentage"`
	FirstVoteCountWeighted   int         `json:"first_vote_count_weighted"`
	VotePercentage           float64     `json:"vote_percentage"`
	FirstPercentage          float64     `json:"first_percentage"`
	ActiveA                  int         `json:"active_a"`
	ActiveB                  int         `json:"active_b"`
	ActiveC                  int         `json:"active_c"`
	ActiveNone               int         `json:"active_none"`
	MaleVoteCount            int         `json:"male_vote_count"`
	MalePercentagePerChar    float64     `json:"male_percentage_per_char"`
	MalePercentagePerTotal   float64     `json:"male_percentage_per_total"`
	FemaleVoteCount          int         `json:"female_vote_count"`
	FemalePercentagePerChar  float64     `json:"female_percentage_per_char"`
	FemalePercentagePerTotal float64     `json:"female_percentage_per_total"`
	Trend                    []TrendItem `json:"trend"`
	TrendFirst               []TrendItem `json:"trend_first"`
	Reasons                  []string    `json:"reasons"`
}

// RankingGlobal summarises one ranking.
type RankingGlobal struct {
	TotalUniqueItems    int     `json:"total_unique_items"`
	TotalFirst          int     `json:"total_first"`
	TotalVotes          int     `json:"total_votes"`
	TotalVoters         int     `json:"total_voters"`
	AverageVotesPerItem float64 `json:"average_votes_per_item"`
	MedianVotesPerItem  float64 `json:"median_votes_per_item"`
}

type RankingQueryResponse struct {
	Entries []RankingEntry `json:"entries"`
	RankingGlobal
}

type CPRankingQueryResponse struct {
	Entries []CPRankingEntry `json:"entries"`
	RankingGlobal
}

type ReasonsResponse struct {
	Reasons []string `json:"reasons"`
}

type TrendResponse struct {
	Trend      []TrendItem `json:"trend"`
	TrendFirst []TrendItem `json:"trend_first,omitempty"`
}

type GlobalStats struct {
	Chars  RankingGlobal `json:"chars"`
	Musics RankingGlobal `json:"musics"`
	CPs    RankingGlobal `json:"cps"`
}

type CompletionRate struct {
	TotalVoters int     `json:"total_voters"`
	Chars       int     `json:"chars"`
	Musics      int     `json:"musics"`
	CPs         int     `json:"cps"`
	Paper       int     `json:"paper"`
	CharsRate   float64 `json:"chars_rate"`
	MusicsRate  float64 `json:"musics_rate"`
	CPsRate     float64 `json:"cps_rate"`
	PaperRate   float64 `json:"paper_rate"`
}

type OptionCount struct {
	Option     string  `json:"option"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

// QuestionTabulation is the result for one questionnaire question.
type QuestionTabulation struct {
	QuestionID   string        `json:"question_id"`
	TotalAnswers int           `json:"total_answers"`
	Options      []OptionCount `json:"options"`
	FreeText     []string      `json:"free_text"`
	Trend        []TrendItem   `json:"trend"`
}

type QueryQuestionnaireResponse struct {
	Entries []QuestionTabulation `json:"entries"`
}

// CovoteItem is the contingency table of one unordered item pair.
// M10 counts ballots selecting only A, M01 only B.
type CovoteItem struct {
	A               string  `json:"a"`
	B               string  `json:"b"`
	M00             int     `json:"m00"`
	M01             int     `json:"m01"`
	M10             int     `json:"m10"`
	M11             int     `json:"m11"`
	ChiSquare       float64 `json:"chi_square"`
	MutualInfoRatio float64 `json:"mutual_info_ratio"`
	CoVoteRate      float64 `json:"co_vote_rate"`
}

type CovoteResponse struct {
	FirstK       int          `json:"first_k"`
	TotalBallots int          `json:"total_ballots"`
	Items        []CovoteItem `json:"items"`
}

// Error response

type ErrorResponse struct {
	Service              string `json:"service"`
	ErrorKind            string `json:"error_kind"`
	ErrorMessage         string `json:"error_message,omitempty"`
	HumanReadableMessage string `json:"human_readable_message,omitempty"`
}
