package group

import (
	"encoding/json"

	"github.com/totegamma/groupsync/core"
)

type resolved struct {
	group     core.Group
	effective core.Event
}

type createRequest struct {
	Actor   string `json:"actor"`
	Name    string `json:"name"`
	About   string `json:"about"`
	Picture string `json:"picture"`
}

type actionRequest struct {
	Actor string `json:"actor"`
}

type postRequest struct {
	Actor   string `json:"actor"`
	Content string `json:"content"`
}

func encodeMetadata(metadata core.GroupMetadata) (string, error) {
	b, err := json.Marshal(metadata)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
