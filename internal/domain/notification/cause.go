package notification

import (
	"encoding/json"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type CauseKind string

const (
	CausePost    CauseKind = "post"
	CauseComment CauseKind = "comment"
	CauseFollow  CauseKind = "follow"
	CauseMessage CauseKind = "message"
)

func (k CauseKind) Valid() bool {
	switch k {
	case CausePost, CauseComment, CauseFollow, CauseMessage:
		return true
	}
	return false
}

// Cause points at the entity that triggered a notification. Exactly one of
// the Post/Comment/Follow/Message refs is set, matching Kind.
type Cause struct {
	Kind    CauseKind
	ID      uuid.UUID
	Post    *PostRef
	Comment *CommentRef
	Follow  *FollowRef
	Message *MessageRef
}

type PostRef struct {
	Content  string `json:"content,omitempty"`
	ImageURL string `json:"image_url,omitempty"`
}

type CommentRef struct {
	Content     string    `json:"content,omitempty"`
	PostID      uuid.UUID `json:"post_id"`
	PostContent string    `json:"post_content,omitempty"`
}

type FollowRef struct {
	FollowerID  uuid.UUID `json:"follower_id"`
	FollowingID uuid.UUID `json:"following_id"`
}

type MessageRef struct {
	ChatID  uuid.UUID `json:"chat_id"`
	Preview string    `json:"preview,omitempty"`
}

func PostCause(postID uuid.UUID, content, imageURL string) *Cause {
	return &Cause{Kind: CausePost, ID: postID, Post: &PostRef{
		Content:  Truncate(content, 100),
		ImageURL: imageURL,
	}}
}

func CommentCause(commentID uuid.UUID, content string, postID uuid.UUID, postContent string) *Cause {
	return &Cause{Kind: CauseComment, ID: commentID, Comment: &CommentRef{
		Content:     content,
		PostID:      postID,
		PostContent: Truncate(postContent, 50),
	}}
}

func FollowCause(followID, followerID, followingID uuid.UUID) *Cause {
	return &Cause{Kind: CauseFollow, ID: followID, Follow: &FollowRef{
		FollowerID:  followerID,
		FollowingID: followingID,
	}}
}

func MessageCause(messageID, chatID uuid.UUID, content string) *Cause {
	return &Cause{Kind: CauseMessage, ID: messageID, Message: &MessageRef{
		ChatID:  chatID,
		Preview: Truncate(content, 50),
	}}
}

func (c *Cause) payload() any {
	switch c.Kind {
	case CausePost:
		return c.Post
	case CauseComment:
		return c.Comment
	case CauseFollow:
		return c.Follow
	case CauseMessage:
		return c.Message
	}
	return nil
}

func (c *Cause) encode() datatypes.JSON {
	p := c.payload()
	if p == nil {
		return nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	return datatypes.JSON(raw)
}

func decodeCause(kind CauseKind, id uuid.UUID, raw datatypes.JSON) *Cause {
	c := &Cause{Kind: kind, ID: id}
	switch kind {
	case CausePost:
		c.Post = &PostRef{}
		_ = json.Unmarshal(orEmpty(raw), c.Post)
	case CauseComment:
		c.Comment = &CommentRef{}
		_ = json.Unmarshal(orEmpty(raw), c.Comment)
	case CauseFollow:
		c.Follow = &FollowRef{}
		_ = json.Unmarshal(orEmpty(raw), c.Follow)
	case CauseMessage:
		c.Message = &MessageRef{}
		_ = json.Unmarshal(orEmpty(raw), c.Message)
	}
	return c
}

func orEmpty(raw datatypes.JSON) []byte {
	if len(raw) == 0 {
		return []byte("{}")
	}
	return raw
}
