package rental

type RentReq struct {
	CopyID int64 `json:"copy_id" validate:"required,gt=0"`
}
