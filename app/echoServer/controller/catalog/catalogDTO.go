package catalog

type CreateTitleReq struct {
	Name            string `json:"name" validate:"required"`
	Author          string `json:"author" validate:"required"`
	Genre           string `json:"genre" validate:"required"`
	PublicationYear int    `json:"publication_year" validate:"required,gt=0"`
}

type AddCopiesReq struct {
	Count int `json:"count" validate:"required,gt=0"`
}

type RetireCopyReq struct {
	Cause string `json:"cause" validate:"required,oneof=WORN STOLEN NEVER_RETURNED"`
}
