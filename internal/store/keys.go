package store

import (
	"fmt"
	"time"
)

// Key layout for the Badger store.
const (
	categoryPrefix         = "category:"
	categoryBySlugPrefix   = "idx:category:slug:"    // slug -> category ID
	categoryByParentPrefix = "idx:category:parent:"  // parentID|root:categoryID -> empty
	categoryByPathPrefix   = "idx:category:path:"    // path -> category ID
	categoryProductPrefix  = "idx:category:product:" // categoryID:productID -> empty
	categoryRequestPrefix  = "category_request:"
	messagePrefix          = "message:" // conversation:unixnano:messageID -> message
	rootParent             = "root"
)

func categoryKey(id string) []byte {
	return []byte(categoryPrefix + id)
}

func categorySlugKey(slug string) []byte {
	return []byte(categoryBySlugPrefix + slug)
}

func parentSegment(parentID string) string {
	if parentID == "" {
		return rootParent
	}
	return parentID
}

func categoryParentPrefix(parentID string) []byte {
	return []byte(categoryByParentPrefix + parentSegment(parentID) + ":")
}

func categoryParentKey(parentID, id string) []byte {
	return []byte(categoryByParentPrefix + parentSegment(parentID) + ":" + id)
}

func categoryPathKey(path string) []byte {
	return []byte(categoryByPathPrefix + path)
}

// descendantPathPrefix matches the path index entries strictly below path.
func descendantPathPrefix(path string) []byte {
	return []byte(categoryByPathPrefix + path + "/")
}

func categoryProductKey(categoryID, productID string) []byte {
	return []byte(categoryProductPrefix + categoryID + ":" + productID)
}

func categoryProductsPrefix(categoryID string) []byte {
	return []byte(categoryProductPrefix + categoryID + ":")
}

func categoryRequestKey(id string) []byte {
	return []byte(categoryRequestPrefix + id)
}

// conversationID is the same for both directions of a conversation.
func conversationID(userA, userB string) string {
	if userA > userB {
		userA, userB = userB, userA
	}
	return userA + "|" + userB
}

func conversationPrefix(userA, userB string) []byte {
	return []byte(messagePrefix + conversationID(userA, userB) + ":")
}

// messageKey sorts messages of one conversation chronologically.
func messageKey(senderID, recipientID string, at time.Time, id string) []byte {
	return fmt.Appendf(nil, "%s%s:%020d:%s", messagePrefix, conversationID(senderID, recipientID), at.UnixNano(), id)
}
