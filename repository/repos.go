package repository

import (
	"github.com/podnetwork/pod-sdk-sub000/db"
	"github.com/podnetwork/pod-sdk-sub000/entity"
	"github.com/podnetwork/pod-sdk-sub000/repository/postgres"
)

type Repo struct {
	Settlements entity.SettlementsRepo
}

func NewRepo(db *db.DB) *Repo {
	return &Repo{
		Settlements: postgres.NewSettlementsRepo("settlements", db),
	}
}
